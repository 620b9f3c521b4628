package persona

// Persona 描述聊天窗口中展示的助手身份。
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	OpeningLine string `json:"openingLine"`
	Description string `json:"description,omitempty"`
}

// DefaultID 是创建会话未指定角色时使用的默认角色。
const DefaultID = "chattia"

// Seed 返回内置助手。
func Seed() []Persona {
	return []Persona{
		{
			ID:          DefaultID,
			Name:        "Chattia",
			Title:       "Layered chat assistant",
			OpeningLine: "Hello! My name is Chattia. How can I help you today?",
			Description: "Answers simple questions instantly and hands harder ones to a larger model.",
		},
	}
}
