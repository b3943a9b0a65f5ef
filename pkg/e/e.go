package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки нормализации
	ErrUnknownSchema      = fmt.Errorf("unknown product schema")
	ErrMissingProductID   = fmt.Errorf("product id is required")
	ErrDuplicateProductID = fmt.Errorf("duplicate product id in batch")

	// Внутренние ошибки с векторами
	ErrVectorEmbeddingEmpty    = fmt.Errorf("vector embedding is empty")
	ErrVectorCountMismatch     = fmt.Errorf("vector count does not match input count")
	ErrVectorDimensionMismatch = fmt.Errorf("vector dimension mismatch")

	// Ошибки источника каталога
	ErrCatalogStatus    = fmt.Errorf("catalog source returned non-2xx status")
	ErrCatalogRPC       = fmt.Errorf("catalog source returned rpc error")
	ErrCatalogMalformed = fmt.Errorf("catalog source returned malformed response")

	// Ошибки embedding-сервиса
	ErrEmbeddingStatus = fmt.Errorf("embedding service returned non-2xx status")
	ErrEmbeddingAPI    = fmt.Errorf("embedding service returned api error")

	// Ответ внешнего сервиса больше допустимого
	ErrResponseTooLarge = fmt.Errorf("response too large")

	// Брокер временно недоступен, событие вернулось в очередь
	ErrBrokerUnavailable = fmt.Errorf("broker unavailable")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
	ErrUnknownProvider      = fmt.Errorf("unknown provider")

	// 400 Bad Request
	ErrStatusBadRequest = fmt.Errorf("bad request")
	ErrInvalidTopK      = fmt.Errorf("topK must be a positive integer")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
