package preference

import "sync"

// DarkModeKey 是主题偏好的存储键。
const DarkModeKey = "darkMode"

// Store 保存聊天窗口的主题偏好。
type Store interface {
	DarkMode() bool
	SetDarkMode(enabled bool)
}

// MemoryStore 在内存中保存偏好，未写入时回退到平台默认主题。
type MemoryStore struct {
	mu      sync.RWMutex
	ambient bool
	values  map[string]bool
}

// NewMemoryStore 创建以 ambient 为默认主题的空存储。
func NewMemoryStore(ambient bool) *MemoryStore {
	return &MemoryStore{
		ambient: ambient,
		values:  make(map[string]bool),
	}
}

// DarkMode 返回已保存的偏好，未设置时返回平台默认值。
func (s *MemoryStore) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[DarkModeKey]; ok {
		return v
	}
	return s.ambient
}

// SetDarkMode 保存偏好。
func (s *MemoryStore) SetDarkMode(enabled bool) {
	s.mu.Lock()
	s.values[DarkModeKey] = enabled
	s.mu.Unlock()
}
