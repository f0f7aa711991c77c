// Package sqlident valida e cita identificadores SQL (schemas, tabelas,
// colunas e constraints) antes de serem interpolados em comandos.
package sqlident

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/lib/pq"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

var ErrInvalidIdentifier = errors.New("identificador SQL inválido")

// Validate aceita apenas nomes em minúsculas, dígitos e sublinhado, com até 63 caracteres.
func Validate(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// ValidateAll valida todos os nomes e devolve o primeiro erro encontrado.
func ValidateAll(names ...string) error {
	for _, name := range names {
		if err := Validate(name); err != nil {
			return err
		}
	}
	return nil
}

// Quote valida e cita um identificador.
func Quote(name string) (string, error) {
	if err := Validate(name); err != nil {
		return "", err
	}
	return pq.QuoteIdentifier(name), nil
}

// MustQuote é usado com nomes já validados na carga da configuração.
func MustQuote(name string) string {
	quoted, err := Quote(name)
	if err != nil {
		panic(err)
	}
	return quoted
}

// Qualified devolve "schema"."nome".
func Qualified(schema, name string) (string, error) {
	qs, err := Quote(schema)
	if err != nil {
		return "", err
	}
	qn, err := Quote(name)
	if err != nil {
		return "", err
	}
	return qs + "." + qn, nil
}

// Literal cita um valor textual para uso em DDL, onde não há placeholders.
func Literal(value string) string {
	return pq.QuoteLiteral(value)
}
