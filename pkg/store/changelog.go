package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shinyes/yep_text/pkg/change"
)

const (
	suffixSeq      = "seq"
	suffixChange   = "change/"
	suffixSnapshot = "snapshot"
)

// ChangeLog 按文档保存 Change 日志和快照。
// 每个追加的 Change 获得一个文档内递增的序号，加载时按序号顺序返回，
// 因此同一个 actor 的 Change 总是按提交顺序读出。
type ChangeLog struct {
	store Store
}

// NewChangeLog 创建 ChangeLog。
func NewChangeLog(s Store) *ChangeLog {
	return &ChangeLog{store: s}
}

// Append 在一个事务中追加 changes，返回最后一个 Change 的序号。
func (l *ChangeLog) Append(docKey string, changes ...*change.Change) (uint64, error) {
	if err := validateDocKey(docKey); err != nil {
		return 0, err
	}

	var last uint64
	err := l.store.Update(func(tx Tx) error {
		seq, err := readSeq(tx, docKey)
		if err != nil {
			return err
		}

		for _, c := range changes {
			data, err := change.Encode(c)
			if err != nil {
				return err
			}
			seq++
			if err := tx.Set(changeKey(docKey, seq), data); err != nil {
				return err
			}
		}

		last = seq
		return tx.Set(docPrefix(docKey, suffixSeq), encodeSeq(seq))
	})
	if err != nil {
		return 0, fmt.Errorf("append changes to %q: %w", docKey, err)
	}

	if len(changes) > 0 {
		log.Printf("[ChangeLog] %s: appended %d changes, last seq %d", docKey, len(changes), last)
	}
	return last, nil
}

// LoadSince 返回序号大于 after 的所有 Change 以及最后一个序号。
func (l *ChangeLog) LoadSince(docKey string, after uint64) ([]*change.Change, uint64, error) {
	if err := validateDocKey(docKey); err != nil {
		return nil, 0, err
	}

	var changes []*change.Change
	last := after
	err := l.store.View(func(tx Tx) error {
		prefix := docPrefix(docKey, suffixChange)
		return tx.Scan(prefix, changeKey(docKey, after+1), func(key, value []byte) error {
			c, err := change.Decode(value)
			if err != nil {
				return err
			}
			changes = append(changes, c)
			last = binary.BigEndian.Uint64(key[len(prefix):])
			return nil
		})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("load changes of %q: %w", docKey, err)
	}
	return changes, last, nil
}

// SaveSnapshot 保存覆盖到 seq 为止的快照，并删除已被快照覆盖的 Change。
func (l *ChangeLog) SaveSnapshot(docKey string, seq uint64, snapshot []byte) error {
	if err := validateDocKey(docKey); err != nil {
		return err
	}

	removed := 0
	err := l.store.Update(func(tx Tx) error {
		value := append(encodeSeq(seq), snapshot...)
		if err := tx.Set(docPrefix(docKey, suffixSnapshot), value); err != nil {
			return err
		}

		var keys [][]byte
		prefix := docPrefix(docKey, suffixChange)
		if err := tx.Scan(prefix, nil, func(key, _ []byte) error {
			if binary.BigEndian.Uint64(key[len(prefix):]) <= seq {
				keys = append(keys, key)
			}
			return nil
		}); err != nil {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot of %q: %w", docKey, err)
	}

	log.Printf("[ChangeLog] %s: snapshot at seq %d, compacted %d changes", docKey, seq, removed)
	return nil
}

// LoadSnapshot 返回最新的快照及其序号，没有快照时返回 ErrKeyNotFound。
func (l *ChangeLog) LoadSnapshot(docKey string) (uint64, []byte, error) {
	if err := validateDocKey(docKey); err != nil {
		return 0, nil, err
	}

	var value []byte
	err := l.store.View(func(tx Tx) error {
		v, err := tx.Get(docPrefix(docKey, suffixSnapshot))
		value = v
		return err
	})
	if err != nil {
		return 0, nil, fmt.Errorf("load snapshot of %q: %w", docKey, err)
	}
	if len(value) < 8 {
		return 0, nil, fmt.Errorf("load snapshot of %q: truncated value", docKey)
	}
	return binary.BigEndian.Uint64(value[:8]), value[8:], nil
}

func readSeq(tx Tx, docKey string) (uint64, error) {
	value, err := tx.Get(docPrefix(docKey, suffixSeq))
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(value) != 8 {
		return 0, fmt.Errorf("sequence of %q: truncated value (%d bytes)", docKey, len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

func docPrefix(docKey, suffix string) []byte {
	return []byte("doc\x00" + docKey + "\x00" + suffix)
}

// changeKey 使用大端序号，使键的字典序与序号顺序一致。
func changeKey(docKey string, seq uint64) []byte {
	return append(docPrefix(docKey, suffixChange), encodeSeq(seq)...)
}

func encodeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func validateDocKey(docKey string) error {
	if docKey == "" || strings.ContainsRune(docKey, 0) {
		return fmt.Errorf("document key %q: %w", docKey, ErrInvalidName)
	}
	return nil
}
