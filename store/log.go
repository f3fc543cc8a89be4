package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ArchiveLog records which games have landed in a finalized batch. It is an
// append-only file with one "<game_id> <turns file>" entry per line.
//
// A torn final line after a crash is ignored on the next open.
type ArchiveLog struct {
	mu    sync.RWMutex
	path  string
	file  *os.File
	games map[string]string
}

func OpenArchiveLog(path string) (*ArchiveLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}

	games := make(map[string]string)
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			id, file, ok := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
			if !ok || id == "" || file == "" {
				continue
			}
			games[id] = file
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &ArchiveLog{path: path, file: file, games: games}, nil
}

func (l *ArchiveLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Lookup returns the turns file holding gameID.
func (l *ArchiveLog) Lookup(gameID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	file, ok := l.games[gameID]
	return file, ok
}

func (l *ArchiveLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.games)
}

// Record appends every game of a finalized batch and syncs once. Games
// already present are skipped.
func (l *ArchiveLog) Record(b Batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}
	if b.TurnsPath == "" {
		return nil
	}
	file := filepath.Base(b.TurnsPath)

	added := 0
	for _, id := range b.GameIDs {
		if id == "" {
			continue
		}
		if _, ok := l.games[id]; ok {
			continue
		}
		if _, err := l.file.WriteString(id + " " + file + "\n"); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
		l.games[id] = file
		added++
	}
	if added == 0 {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}
