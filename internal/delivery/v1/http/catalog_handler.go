package http

import (
	"net/http"

	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/logger"
)

// Endpoints маршруты, которые перечисляются на любом неизвестном пути
var Endpoints = []string{
	"/products",
	"/text-data",
	"/insert",
	"/query?q=<text>&topK=<n>",
}

type CatalogHandler struct {
	catalogUsecase usecase.CatalogUC
	logger         logger.Logger
}

func NewCatalogHandler(catalogUsecase usecase.CatalogUC, logger logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalogUsecase: catalogUsecase, logger: logger}
}

// products
//
//	@Summary		Исходный каталог
//	@Description	Возвращает страницу каталога в том виде, в каком её отдал источник
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	domain.Catalog
//	@Failure		500	{string}	string	"Ошибка источника каталога"
//	@Router			/products [get]
func (h *CatalogHandler) products(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalogUsecase.Products(r.Context())
	if err != nil {
		h.logger.Errorf(err, "products failed")
		WritePlainError(w)
		return
	}

	WriteSuccess(w, http.StatusOK, catalog)
}

// textData
//
//	@Summary		Нормализованные записи
//	@Description	Текст для эмбеддинга и метаданные каждого товара каталога
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{array}		domain.NormalizedRecord
//	@Failure		500	{string}	string	"Ошибка источника или нормализации"
//	@Router			/text-data [get]
func (h *CatalogHandler) textData(w http.ResponseWriter, r *http.Request) {
	records, err := h.catalogUsecase.TextData(r.Context())
	if err != nil {
		h.logger.Errorf(err, "text-data failed")
		WritePlainError(w)
		return
	}

	WriteSuccess(w, http.StatusOK, records)
}

// insert
//
//	@Summary		Индексация каталога
//	@Description	Нормализует каталог, получает эмбеддинги одним запросом и записывает их в векторный индекс
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	domain.UpsertAck
//	@Failure		500	{object}	ErrorResponse
//	@Router			/insert [post]
func (h *CatalogHandler) insert(w http.ResponseWriter, r *http.Request) {
	ack, err := h.catalogUsecase.Insert(r.Context())
	if err != nil {
		h.logger.Errorf(err, "insert failed")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, ack)
}

// query
//
//	@Summary		Семантический поиск
//	@Description	Ищет вина, близкие к тексту запроса. Без q ищется "red wine", без topK возвращается 5 результатов
//	@Tags			index
//	@Produce		json
//	@Param			q		query		string	false	"Текст запроса"
//	@Param			topK	query		int		false	"Число результатов"
//	@Success		200		{object}	usecase.QueryRes
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/query [get]
func (h *CatalogHandler) query(w http.ResponseWriter, r *http.Request) {
	topK, err := parseTopK(r.URL.Query().Get("topK"))
	if err != nil {
		h.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	res, err := h.catalogUsecase.Query(r.Context(), usecase.NewQueryReq(r.URL.Query().Get("q"), topK))
	if err != nil {
		h.logger.Errorf(err, "query failed")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, res)
}

func (h *CatalogHandler) endpoints(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, EndpointsResponse{Endpoints: Endpoints})
}
