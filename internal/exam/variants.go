package exam

import (
	"encoding/json"
	"sort"
)

// VariantRow is one stored (variant, question) pair.
type VariantRow struct {
	ExamID      int64
	VariantCode string
	VariantQuestion
}

// VariantSet maps variant code to its questions ordered by Order.
type VariantSet struct {
	codes []string
	byKey map[string][]VariantQuestion
}

// GroupVariants builds a VariantSet from rows in any order.
func GroupVariants(rows []VariantRow) VariantSet {
	vs := VariantSet{byKey: map[string][]VariantQuestion{}}
	for _, r := range rows {
		if _, ok := vs.byKey[r.VariantCode]; !ok {
			vs.codes = append(vs.codes, r.VariantCode)
		}
		vs.byKey[r.VariantCode] = append(vs.byKey[r.VariantCode], r.VariantQuestion)
	}
	sort.Strings(vs.codes)
	for _, qs := range vs.byKey {
		sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	}
	return vs
}

func (vs VariantSet) Codes() []string { return append([]string(nil), vs.codes...) }

func (vs VariantSet) Len() int { return len(vs.codes) }

func (vs VariantSet) Get(code string) ([]VariantQuestion, bool) {
	qs, ok := vs.byKey[code]
	return qs, ok
}

// Variants returns the set as a slice ordered by code.
func (vs VariantSet) Variants(examID int64) []Variant {
	out := make([]Variant, 0, len(vs.codes))
	for _, c := range vs.codes {
		out = append(out, Variant{Code: c, ExamID: examID, Questions: vs.byKey[c]})
	}
	return out
}

// MarshalJSON renders {"CODE": [questions...]} like the variants endpoint returns.
func (vs VariantSet) MarshalJSON() ([]byte, error) {
	m := make(map[string][]VariantQuestion, len(vs.byKey))
	for k, v := range vs.byKey {
		m[k] = v
	}
	return json.Marshal(m)
}

// Rows flattens variants into storable rows, numbering questions by position.
func Rows(examID int64, variants []Variant) []VariantRow {
	var out []VariantRow
	for _, v := range variants {
		for i, q := range v.Questions {
			q.Order = i + 1
			out = append(out, VariantRow{ExamID: examID, VariantCode: v.Code, VariantQuestion: q})
		}
	}
	return out
}
