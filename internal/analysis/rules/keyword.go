package rules

// Safety 拒绝包含禁用词的输入。
type Safety struct {
	blocked []string
	refusal string
}

// NewSafety 创建安全规则。匹配不区分大小写且按子串进行，
// 因此 "exploits" 也会命中 "exploit"。
func NewSafety(blocked []string, refusal string) *Safety {
	return &Safety{blocked: lowerAll(blocked), refusal: refusal}
}

func (r *Safety) Name() string { return "safety" }

func (r *Safety) TryResolve(normalized string) (string, bool) {
	if containsAny(normalized, r.blocked) {
		return r.refusal, true
	}
	return "", false
}

// Intent 是一组关键词及其固定回复。
type Intent struct {
	Label    string
	Keywords []string
	Reply    string
}

// Intents 返回第一个关键词命中输入的意图。
type Intents struct {
	name    string
	intents []Intent
}

// NewIntents 创建关键词规则，按切片顺序匹配。
func NewIntents(name string, intents []Intent) *Intents {
	copied := make([]Intent, 0, len(intents))
	for _, in := range intents {
		in.Keywords = lowerAll(in.Keywords)
		copied = append(copied, in)
	}
	return &Intents{name: name, intents: copied}
}

func (r *Intents) Name() string { return r.name }

func (r *Intents) TryResolve(normalized string) (string, bool) {
	for _, in := range r.intents {
		if containsAny(normalized, in.Keywords) {
			return in.Reply, true
		}
	}
	return "", false
}
