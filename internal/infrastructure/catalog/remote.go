package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const listProductsTool = "list-filtered-products"

var maxResponseSize = 32 << 20

type rpcRequest struct {
	JSONRPC string              `json:"jsonrpc"`
	Method  string              `json:"method"`
	Params  *mcp.CallToolParams `json:"params"`
	ID      int64               `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result *struct {
		Content []struct {
			Type string  `json:"type"`
			Text *string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

type productList struct {
	Products *[]domain.NestedProduct `json:"products"`
}

// RemoteSource получает каталог вызовом инструмента list-filtered-products по JSON-RPC.
type RemoteSource struct {
	cfg    *cfg.CatalogCfg
	client *http.Client
	logger logger.Logger
	now    func() time.Time
}

func NewRemoteSource(cfg *cfg.CatalogCfg, client *http.Client, logger logger.Logger) *RemoteSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteSource{
		cfg:    cfg,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// FetchCatalog выполняет один POST-запрос и разбирает вложенный JSON со списком товаров.
func (s *RemoteSource) FetchCatalog(ctx context.Context) (*domain.Catalog, error) {
	const op = "RemoteSource.FetchCatalog"

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params: &mcp.CallToolParams{
			Name: listProductsTool,
			Arguments: map[string]string{
				"tenantId": s.cfg.TenantID,
				"page":     strconv.Itoa(s.cfg.Page),
				"limit":    strconv.Itoa(s.cfg.Limit),
			},
		},
		ID: s.now().UnixMilli(),
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ServerURL, bytes.NewReader(body))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, e.Wrap(op, fmt.Errorf("%w: HTTP %d: %s", e.ErrCatalogStatus, resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxResponseSize)+1))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(payload) > maxResponseSize {
		return nil, e.Wrap(op, fmt.Errorf("%w: catalog body exceeds %d bytes", e.ErrResponseTooLarge, maxResponseSize))
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		payload, err = lastEventData(payload)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	products, err := decodeProducts(payload)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	s.logger.Debugf("Fetched %d products from catalog. tenant: %s, page: %d", len(products), s.cfg.TenantID, s.cfg.Page)

	return domain.NewCatalog(products), nil
}

func decodeProducts(payload []byte) ([]domain.RawProduct, error) {
	var resp rpcResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", e.ErrCatalogMalformed, err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s (code %d)", e.ErrCatalogRPC, resp.Error.Message, resp.Error.Code)
	}

	if resp.Result == nil || len(resp.Result.Content) == 0 || resp.Result.Content[0].Text == nil {
		return nil, fmt.Errorf("%w: missing result.content[0].text", e.ErrCatalogMalformed)
	}

	var list productList
	if err := json.Unmarshal([]byte(*resp.Result.Content[0].Text), &list); err != nil {
		return nil, fmt.Errorf("%w: product list: %v", e.ErrCatalogMalformed, err)
	}
	if list.Products == nil {
		return nil, fmt.Errorf("%w: missing products", e.ErrCatalogMalformed)
	}

	products := make([]domain.RawProduct, 0, len(*list.Products))
	for _, p := range *list.Products {
		products = append(products, domain.NewNestedRawProduct(p))
	}

	return products, nil
}

// lastEventData возвращает данные последнего события SSE-потока. Многострочные data склеиваются через \n.
func lastEventData(stream []byte) ([]byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseSize)

	var current, last []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(current) > 0 {
				last, current = current, nil
			}
		case strings.HasPrefix(line, "data:"):
			current = append(current, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: event stream: %v", e.ErrCatalogMalformed, err)
	}
	if len(current) > 0 {
		last = current
	}
	if len(last) == 0 {
		return nil, fmt.Errorf("%w: event stream has no data", e.ErrCatalogMalformed)
	}

	return []byte(strings.Join(last, "\n")), nil
}
