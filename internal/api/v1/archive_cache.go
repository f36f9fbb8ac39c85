package v1

import (
	"os"
	"sync"
	"time"
)

type archiveEntry struct {
	filePath  string
	expiresAt time.Time
}

// archiveCache 任务结果 zip 的临时文件缓存，过期后删除文件
//
// 文件在持锁时打开后交给调用方，之后的替换或过期删除只移除目录项，
// 已打开的文件句柄仍可读完。
type archiveCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]archiveEntry
}

func newArchiveCache(ttl time.Duration) *archiveCache {
	return &archiveCache{
		ttl:   ttl,
		items: make(map[string]archiveEntry),
	}
}

// put 缓存 jobID 的压缩包并返回已打开的文件，调用方负责关闭
func (s *archiveCache) put(jobID, filePath string) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	if old, ok := s.items[jobID]; ok && old.filePath != filePath {
		_ = os.Remove(old.filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		delete(s.items, jobID)
		return nil, err
	}
	s.items[jobID] = archiveEntry{
		filePath:  filePath,
		expiresAt: time.Now().Add(s.ttl),
	}
	return f, nil
}

// open 打开已缓存的压缩包，调用方负责关闭
func (s *archiveCache) open(jobID string) (*os.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[jobID]
	if !ok {
		return nil, false
	}
	f, err := os.Open(v.filePath)
	if err != nil {
		delete(s.items, jobID)
		return nil, false
	}
	return f, true
}

func (s *archiveCache) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.items {
		_ = os.Remove(v.filePath)
		delete(s.items, k)
	}
}

func (s *archiveCache) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			_ = os.Remove(v.filePath)
			delete(s.items, k)
		}
	}
}
