// Package coercion concentra as regras de conversão das colunas de texto da
// fato para datas e valores decimais. As mesmas expressões regulares alimentam
// as funções Go e as cláusulas USING geradas para o banco.
package coercion

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/cockroachdb/apd/v3"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

const (
	DatePattern        = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`
	AmountStripPattern = `[^0-9.+-]`
	AmountPattern      = `^[+-]?([0-9]{1,13}([.][0-9]*)?|[.][0-9]+)$`

	// AmountScale é o número de casas decimais de NUMERIC(15,2).
	AmountScale     = 2
	amountPrecision = 15
	// AmountLimit é o menor módulo que arredonda para fora de NUMERIC(15,2).
	AmountLimit = "9999999999999.995"
)

var (
	dateRe        = regexp.MustCompile(DatePattern)
	amountStripRe = regexp.MustCompile(AmountStripPattern)
	amountRe      = regexp.MustCompile(AmountPattern)
	amountLimit   = apd.New(9999999999999995, -3)

	amountContext = apd.Context{
		Precision:   amountPrecision,
		MaxExponent: apd.MaxExponent,
		MinExponent: apd.MinExponent,
		Traps:       apd.DefaultTraps,
		Rounding:    apd.RoundHalfUp,
	}
)

var (
	ErrInvalidCalendarDate = errors.New("data fora do calendário")
)

// MatchDate aceita apenas AAAA-MM-DD exato. Não valida o calendário:
// "2024-13-40" passa e o banco decide se aceita.
func MatchDate(raw *string) *domain.Date {
	if raw == nil || !dateRe.MatchString(*raw) {
		return nil
	}
	d := domain.Date(*raw)
	return &d
}

// StripAmount remove tudo que não é dígito, ponto ou sinal.
func StripAmount(raw string) string {
	return amountStripRe.ReplaceAllString(raw, "")
}

// ParseAmount converte um valor ruidoso em decimal com duas casas.
// Texto vazio depois da limpeza, que não forma um número ou que não cabe em
// NUMERIC(15,2) depois do arredondamento vira nulo.
func ParseAmount(raw *string) *apd.Decimal {
	d, err := parseAmount(raw)
	if err != nil {
		return nil
	}
	return d
}

func parseAmount(raw *string) (*apd.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	stripped := StripAmount(*raw)
	if !amountRe.MatchString(stripped) {
		return nil, nil
	}

	parsed, _, err := apd.NewFromString(stripped)
	if err != nil {
		return nil, fmt.Errorf("erro ao interpretar valor %q: %w", stripped, err)
	}

	if new(apd.Decimal).Abs(parsed).Cmp(amountLimit) >= 0 {
		return nil, nil
	}

	d := new(apd.Decimal)
	if _, err := amountContext.Quantize(d, parsed, -AmountScale); err != nil {
		return nil, fmt.Errorf("erro ao arredondar valor %q: %w", stripped, err)
	}
	if d.IsZero() {
		d.Negative = false
	}
	return d, nil
}

// Convert reproduz o que o banco faz ao aplicar a cláusula USING:
// valores fora do padrão viram nil. Só datas no padrão mas fora do
// calendário retornam erro.
func Convert(kind domain.ColumnKind, raw *string) (any, error) {
	switch kind {
	case domain.ColumnDate:
		d := MatchDate(raw)
		if d == nil {
			return nil, nil
		}
		t, err := d.Time()
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCalendarDate, string(*d))
		}
		return t, nil
	case domain.ColumnAmount:
		d, err := parseAmount(raw)
		if err != nil || d == nil {
			return nil, err
		}
		return d, nil
	default:
		if raw == nil {
			return nil, nil
		}
		return *raw, nil
	}
}

// Rejected devolve os valores que passam no padrão mas que o tipo de destino recusa.
func Rejected(kind domain.ColumnKind, values []string) []string {
	rejected := make([]string, 0)
	for i := range values {
		if _, err := Convert(kind, &values[i]); err != nil {
			rejected = append(rejected, values[i])
		}
	}
	return rejected
}

// UsingExpression monta a cláusula USING que converte a coluna de texto.
// quotedColumn precisa vir citado por sqlident.
func UsingExpression(kind domain.ColumnKind, quotedColumn string) string {
	switch kind {
	case domain.ColumnDate:
		return fmt.Sprintf(
			"CASE WHEN %[1]s ~ %[2]s THEN %[1]s::DATE ELSE NULL END",
			quotedColumn, sqlident.Literal(DatePattern),
		)
	case domain.ColumnAmount:
		stripped := fmt.Sprintf("regexp_replace(%s, %s, '', 'g')", quotedColumn, sqlident.Literal(AmountStripPattern))
		// o CASE interno só converte depois que o padrão casou
		return fmt.Sprintf(
			"CASE WHEN %[1]s ~ %[2]s THEN CASE WHEN abs(%[1]s::NUMERIC) < %[3]s THEN %[1]s::NUMERIC(15,2) END ELSE NULL END",
			stripped, sqlident.Literal(AmountPattern), AmountLimit,
		)
	default:
		return quotedColumn
	}
}

// RevertExpression devolve a coluna tipada ao texto em um formato que a
// coerção reconhece de novo.
func RevertExpression(kind domain.ColumnKind, quotedColumn string) string {
	switch kind {
	case domain.ColumnDate:
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", quotedColumn)
	default:
		return quotedColumn + "::TEXT"
	}
}
