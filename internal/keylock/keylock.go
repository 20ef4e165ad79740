// Package keylock 提供按 key 分片的互斥锁。
// 不同 key 之间互不阻塞；锁在没有持有者和等待者时被回收，map 不会无限增长。
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker 按 key 串行化临界区
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New 创建 Locker
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock 获取 key 对应的锁，返回的函数用于释放
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len 当前被持有或等待中的 key 数量
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
