package domain

// Metadata строковые атрибуты записи для фильтрации в векторном индексе.
type Metadata map[string]string

// NormalizedRecord текст для эмбеддинга и метаданные одной записи каталога.
type NormalizedRecord struct {
	ID       ProductID `json:"id"`
	Schema   Schema    `json:"-"`
	Text     string    `json:"text"`
	Metadata Metadata  `json:"metadata"`
}

// IndexEntry точка векторного индекса.
type IndexEntry struct {
	ID       ProductID
	Vector   []float32
	Metadata Metadata
}

func NewIndexEntry(id ProductID, vector []float32, metadata Metadata) IndexEntry {
	return IndexEntry{
		ID:       id,
		Vector:   vector,
		Metadata: metadata,
	}
}

// UpsertAck подтверждение индекса о записи точек.
type UpsertAck struct {
	Count       int         `json:"count"`
	IDs         []ProductID `json:"ids"`
	Status      string      `json:"status,omitempty"`
	OperationID uint64      `json:"operationId,omitempty"`
}

// IndexQuery запрос ближайших соседей.
type IndexQuery struct {
	Vector       []float32
	TopK         int
	WithMetadata bool
}

// Match найденная точка и её близость к запросу.
type Match struct {
	ID       ProductID `json:"id"`
	Score    float32   `json:"score"`
	Metadata Metadata  `json:"metadata,omitempty"`
}
