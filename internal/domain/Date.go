package domain

import "time"

// Date é uma data no formato AAAA-MM-DD que passou pelo padrão de coerção.
// A validade no calendário fica a cargo do banco.
type Date string

func (d Date) Time() (time.Time, error) {
	return time.Parse(time.DateOnly, string(d))
}
