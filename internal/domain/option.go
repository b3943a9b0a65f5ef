package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Option хранит необязательное значение. Отсутствующий ключ и JSON null дают пустой Option.
type Option[T any] struct {
	value T
	valid bool
}

func Some[T any](v T) Option[T] {
	return Option[T]{value: v, valid: true}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

// Get возвращает значение и признак его наличия.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.valid
}

func (o Option[T]) Valid() bool {
	return o.valid
}

// OrZero возвращает значение или нулевое значение типа.
func (o Option[T]) OrZero() T {
	return o.value
}

func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Option[T]{}
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// UnmarshalYAML читает значение из yaml-каталога. Узел null до этого метода не доходит
// и оставляет Option пустым.
func (o *Option[T]) UnmarshalYAML(unmarshal func(any) error) error {
	var v T
	if err := unmarshal(&v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// IsZero нужен для omitempty в yaml/json-кодировщиках, которые его уважают.
func (o Option[T]) IsZero() bool {
	return !o.valid
}

// Scalar — строковое представление значения, которое в источнике может прийти
// строкой, числом или булевым. Используется для перечислимых полей и фасетов вкуса.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("scalar: empty input")
	}

	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*s = Scalar(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("scalar: unsupported value %s", data)
		}
		*s = Scalar(n.String())
	}

	return nil
}

func (s Scalar) String() string {
	return string(s)
}

// UnmarshalYAML позволяет читать Scalar из yaml-каталога: там числа и строки
// различаются уже на уровне узла.
func (s *Scalar) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*s = Scalar(v)
	case nil:
		*s = ""
	default:
		*s = Scalar(fmt.Sprint(v))
	}
	return nil
}
