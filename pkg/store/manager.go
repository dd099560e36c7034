package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MultiStore 在同一个根目录下为每个副本管理一个 BadgerStore。
type MultiStore struct {
	rootPath string
	options  []BadgerOption

	mu     sync.Mutex
	stores map[string]*BadgerStore
}

// NewMultiStore 创建管理器，options 用于打开每个副本的存储。
func NewMultiStore(rootPath string, options ...BadgerOption) *MultiStore {
	return &MultiStore{
		rootPath: rootPath,
		options:  options,
		stores:   make(map[string]*BadgerStore),
	}
}

// Get 返回副本的存储，尚未打开时打开它。
func (m *MultiStore) Get(name string) (*BadgerStore, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[name]; ok {
		return s, nil
	}

	dbPath := filepath.Join(m.rootPath, name)
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s, err := NewBadgerStore(dbPath, m.options...)
	if err != nil {
		return nil, err
	}

	m.stores[name] = s
	return s, nil
}

// Close 关闭副本的存储。
func (m *MultiStore) Close(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[name]
	if !ok {
		return nil
	}
	delete(m.stores, name)
	return s.Close()
}

// CloseAll 关闭所有打开的存储，返回遇到的第一个错误。
func (m *MultiStore) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, s := range m.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store %q: %w", name, err)
		}
		delete(m.stores, name)
	}
	return firstErr
}

// validateName 拒绝不能安全用作单级目录名的副本名。
func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "", trimmed == ".", trimmed == "..":
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	case strings.ContainsAny(name, `/\:`), filepath.IsAbs(name):
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
