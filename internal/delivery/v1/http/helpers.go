package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/wine-search/pkg/e"
)

// ErrorResponse тело ответа /insert и /query при ошибке
type ErrorResponse struct {
	Error string `json:"error"`
}

// EndpointsResponse список поддерживаемых маршрутов
type EndpointsResponse struct {
	Endpoints []string `json:"endpoints"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Error: message}
}

// ToHTTPStatus определяет код ответа по ошибке. Всё остальное отдаётся как 500.
func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, e.ErrInvalidTopK), errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError пишет {"error": "..."} с сообщением исходной ошибки
func WriteError(w http.ResponseWriter, err error) {
	WriteSuccess(w, ToHTTPStatus(err), NewErrorResponse(err.Error()))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WritePlainError отдаёт неструктурированный текст 500
func WritePlainError(w http.ResponseWriter) {
	http.Error(w, e.ErrInternalServerError.Error(), http.StatusInternalServerError)
}

// parseTopK разбирает параметр topK. Пустое значение даёт 0, и use case подставит значение по умолчанию.
func parseTopK(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	topK, err := strconv.Atoi(raw)
	if err != nil || topK <= 0 {
		return 0, e.Wrap(raw, e.ErrInvalidTopK)
	}

	return topK, nil
}
