package persona

// Store 为处理器和回复链提供角色查询。
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore 基于内存列表实现 Store。
type MemoryStore struct {
	items []Persona
	index map[string]int
}

// NewMemoryStore 使用给定角色初始化存储，重复 ID 以先出现者为准。
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{index: make(map[string]int, len(items))}
	for _, item := range items {
		if _, dup := s.index[item.ID]; dup {
			continue
		}
		s.index[item.ID] = len(s.items)
		s.items = append(s.items, item)
	}
	return s
}

// List 按初始化顺序返回角色列表。
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID 根据 ID 查找角色。
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	i, ok := s.index[id]
	if !ok {
		return Persona{}, false
	}
	return s.items[i], true
}
