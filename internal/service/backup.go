package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/db"
)

type BackupInfo struct {
	Path          string    `json:"path"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
	SizeBytes     int64     `json:"size_bytes"`
	SchemaVersion int       `json:"schema_version,omitempty"`
}

// CreateBackup writes a consistent snapshot of the open database to outPath
// with a .sha256 sidecar. An existing outPath is never overwritten.
func (s *Store) CreateBackup(ctx context.Context, outPath string) (BackupInfo, error) {
	if strings.TrimSpace(outPath) == "" {
		return BackupInfo{}, fmt.Errorf("backup output path is required")
	}
	if _, err := os.Stat(outPath); err == nil {
		return BackupInfo{}, fmt.Errorf("backup %s already exists", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return BackupInfo{}, fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, outPath); err != nil {
		return BackupInfo{}, fmt.Errorf("snapshot database: %w", err)
	}
	checksum, err := fileSHA256(outPath)
	if err != nil {
		return BackupInfo{}, err
	}
	if err := os.WriteFile(outPath+".sha256", []byte(checksum+"\n"), 0o644); err != nil {
		return BackupInfo{}, fmt.Errorf("write checksum file: %w", err)
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("stat backup: %w", err)
	}
	version, err := db.SchemaVersion(s.db)
	if err != nil {
		return BackupInfo{}, err
	}
	s.log.Info("backup written", "path", outPath, "bytes", st.Size())
	return BackupInfo{Path: outPath, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size(), SchemaVersion: version}, nil
}

// RestoreBackup verifies backupPath and copies it over dbPath. The target is
// only replaced when force is set.
func RestoreBackup(backupPath, dbPath string, force bool) (BackupInfo, error) {
	if strings.TrimSpace(backupPath) == "" || strings.TrimSpace(dbPath) == "" {
		return BackupInfo{}, fmt.Errorf("backup path and db path are required")
	}
	if !force {
		if _, err := os.Stat(dbPath); err == nil {
			return BackupInfo{}, fmt.Errorf("target db already exists; use --force to overwrite")
		}
	}
	info, err := inspectBackup(backupPath)
	if err != nil {
		return BackupInfo{}, err
	}
	if expected, err := os.ReadFile(backupPath + ".sha256"); err == nil {
		if strings.TrimSpace(string(expected)) != info.Checksum {
			return BackupInfo{}, fmt.Errorf("backup checksum mismatch")
		}
	}
	if info.SchemaVersion == 0 {
		return BackupInfo{}, fmt.Errorf("%s is not a lifteat database", backupPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return BackupInfo{}, fmt.Errorf("create db directory: %w", err)
	}
	if err := copyFile(backupPath, dbPath); err != nil {
		return BackupInfo{}, err
	}
	return info, nil
}

func inspectBackup(path string) (BackupInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("stat backup: %w", err)
	}
	checksum, err := fileSHA256(path)
	if err != nil {
		return BackupInfo{}, err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return BackupInfo{}, err
	}
	defer sqldb.Close()
	version, err := db.SchemaVersion(sqldb)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("read backup schema: %w", err)
	}
	return BackupInfo{Path: path, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size(), SchemaVersion: version}, nil
}

// ListBackups returns the .db files in dir, newest first.
func ListBackups(dir string) ([]BackupInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := make([]BackupInfo, 0)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".db") {
			continue
		}
		full := filepath.Join(dir, f.Name())
		st, err := os.Stat(full)
		if err != nil {
			continue
		}
		checksum := ""
		if b, err := os.ReadFile(full + ".sha256"); err == nil {
			checksum = strings.TrimSpace(string(b))
		}
		out = append(out, BackupInfo{Path: full, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Path > out[j].Path
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
