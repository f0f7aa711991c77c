package domain

import (
	"errors"
	"fmt"
	"strings"
)

type TargetKind string

const (
	TargetDimensionStage TargetKind = "dimension-stage"
	TargetDimensionOwner TargetKind = "dimension-owner"
	TargetFact           TargetKind = "fact"
)

var ErrUnknownTarget = errors.New("alvo de reconciliação desconhecido")

// nomes usados pelos scripts antigos de carga
var targetAliases = map[string]TargetKind{
	"dim_etapa":  TargetDimensionStage,
	"dim_stage":  TargetDimensionStage,
	"dim_owners": TargetDimensionOwner,
	"dim_owner":  TargetDimensionOwner,
	"fato_deal":  TargetFact,
	"fact_deal":  TargetFact,
}

// OrderedTargets é a ordem em que uma execução completa processa os alvos:
// as dimensões precisam existir antes da tabela fato.
func OrderedTargets() []TargetKind {
	return []TargetKind{TargetDimensionStage, TargetDimensionOwner, TargetFact}
}

func ParseTargetKind(s string) (TargetKind, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	switch TargetKind(value) {
	case TargetDimensionStage, TargetDimensionOwner, TargetFact:
		return TargetKind(value), nil
	}
	if kind, ok := targetAliases[value]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

func (k TargetKind) IsDimension() bool {
	return k == TargetDimensionStage || k == TargetDimensionOwner
}

func (k TargetKind) String() string {
	return string(k)
}
