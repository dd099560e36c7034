// Package store 提供 KV 存储抽象、基于 Badger 的实现，以及按文档保存
// Change 日志和快照的 ChangeLog。
package store

import (
	"errors"
)

var (
	// ErrKeyNotFound 表示键不存在。
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidName 表示副本名不能用作目录名。
	ErrInvalidName = errors.New("invalid store name")
)

// Store 代表底层 KV 存储。每个副本拥有一个 Store 实例。
type Store interface {
	// Close 关闭存储。
	Close() error

	// View 执行只读事务。
	View(fn func(Tx) error) error

	// Update 执行读写事务，fn 返回错误时事务被丢弃。
	Update(fn func(Tx) error) error
}

// Tx 代表事务。
type Tx interface {
	// Set 设置键的值。
	Set(key, value []byte) error

	// Get 获取键的值，键不存在时返回 ErrKeyNotFound。
	Get(key []byte) ([]byte, error)

	// Delete 删除键。
	Delete(key []byte) error

	// Scan 按键的升序遍历带有 prefix 的所有键，fn 返回错误时停止。
	Scan(prefix, start []byte, fn func(key, value []byte) error) error
}
