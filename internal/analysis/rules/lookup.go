package rules

// Lookup 回答与表中键完全相同的输入。
type Lookup struct {
	table map[string]string
}

// NewLookup 复制查找表并归一化键。
func NewLookup(table map[string]string) *Lookup {
	normalized := make(map[string]string, len(table))
	for k, v := range table {
		normalized[Normalize(k)] = v
	}
	return &Lookup{table: normalized}
}

func (r *Lookup) Name() string { return "lookup" }

func (r *Lookup) TryResolve(normalized string) (string, bool) {
	reply, ok := r.table[normalized]
	return reply, ok
}
