package domain

import "sort"

type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// IntegrityReport conta, por chave, as referências da fato que não existem na dimensão.
// É produzido por uma leitura e nunca é persistido.
type IntegrityReport struct {
	InvalidStageRefs map[string]int64 `json:"invalid_stage_refs"`
	InvalidOwnerRefs map[string]int64 `json:"invalid_owner_refs"`
}

func NewIntegrityReport() IntegrityReport {
	return IntegrityReport{
		InvalidStageRefs: map[string]int64{},
		InvalidOwnerRefs: map[string]int64{},
	}
}

func (r *IntegrityReport) Set(role ReferenceRole, counts map[string]int64) {
	if counts == nil {
		counts = map[string]int64{}
	}
	switch role {
	case ReferenceStage:
		r.InvalidStageRefs = counts
	case ReferenceOwner:
		r.InvalidOwnerRefs = counts
	}
}

func (r IntegrityReport) For(role ReferenceRole) map[string]int64 {
	switch role {
	case ReferenceStage:
		return r.InvalidStageRefs
	case ReferenceOwner:
		return r.InvalidOwnerRefs
	}
	return nil
}

// Total soma as linhas com referência inválida.
func (r IntegrityReport) Total() int64 {
	var total int64
	for _, c := range r.InvalidStageRefs {
		total += c
	}
	for _, c := range r.InvalidOwnerRefs {
		total += c
	}
	return total
}

func (r IntegrityReport) Empty() bool {
	return len(r.InvalidStageRefs) == 0 && len(r.InvalidOwnerRefs) == 0
}

// Top devolve as n chaves mais frequentes, desempatando pela chave.
func (r IntegrityReport) Top(role ReferenceRole, n int) []KeyCount {
	counts := r.For(role)
	top := make([]KeyCount, 0, len(counts))
	for k, c := range counts {
		top = append(top, KeyCount{Key: k, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Key < top[j].Key
	})
	if n > 0 && len(top) > n {
		top = top[:n]
	}
	return top
}
