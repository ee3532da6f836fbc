package backups

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Metadata is the sidecar record written next to each backup archive.
type Metadata struct {
	BackupName    string    `json:"backup_name"`
	Database      string    `json:"database"`
	Host          string    `json:"host"`
	Port          string    `json:"port"`
	Timestamp     time.Time `json:"timestamp"`
	Reason        string    `json:"reason"`
	RetentionDays int       `json:"retention_days"`
	ExpiresAt     time.Time `json:"expires_at"`
	SizeBytes     int64     `json:"size_bytes,omitempty"`
	DurationSecs  int       `json:"duration_seconds,omitempty"`
}

// Backup is an archive file together with its metadata.
type Backup struct {
	Path     string
	Metadata Metadata
	SizeMB   int
	Age      time.Duration
}

// CreateOptions contains options for creating a backup.
type CreateOptions struct {
	Database      string
	Host          string
	Port          string
	User          string
	Password      string
	Reason        string
	RetentionDays int
	Dir           string
	Validate      bool
}

// Create dumps the database with pg_dump, gzips the output, and writes a
// metadata sidecar. The archive lands as vitalpages_<db>_<ts>_<reason>.sql.gz.
func Create(ctx context.Context, opts CreateOptions) (*Backup, error) {
	if opts.Database == "" || opts.Host == "" || opts.Port == "" || opts.User == "" {
		return nil, fmt.Errorf("database, host, port, and user are required")
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	if opts.Reason == "" {
		opts.Reason = "manual"
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := exec.LookPath("pg_dump"); err != nil {
		return nil, fmt.Errorf("pg_dump not found in PATH (install postgresql-client): %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	backupName := fmt.Sprintf("vitalpages_%s_%s_%s.sql.gz", opts.Database, timestamp, opts.Reason)
	backupPath := filepath.Join(opts.Dir, backupName)
	metadataPath := strings.TrimSuffix(backupPath, ".sql.gz") + ".meta.json"

	now := time.Now().UTC()
	metadata := Metadata{
		BackupName:    backupName,
		Database:      opts.Database,
		Host:          opts.Host,
		Port:          opts.Port,
		Timestamp:     now,
		Reason:        opts.Reason,
		RetentionDays: opts.RetentionDays,
		ExpiresAt:     now.Add(time.Duration(opts.RetentionDays) * 24 * time.Hour),
	}
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	pgpassFile, err := createPgpassFile(opts.Host, opts.Port, opts.Database, opts.User, opts.Password)
	if err != nil {
		return nil, fmt.Errorf("create pgpass file: %w", err)
	}
	defer func() { _ = os.Remove(pgpassFile) }()

	start := time.Now()
	if err := runPgDump(ctx, pgpassFile, opts, backupPath); err != nil {
		_ = os.Remove(backupPath)
		return nil, fmt.Errorf("pg_dump failed: %w", err)
	}
	duration := time.Since(start)

	if opts.Validate {
		if err := validateArchive(backupPath); err != nil {
			_ = os.Remove(backupPath)
			return nil, fmt.Errorf("backup validation failed: %w", err)
		}
	}

	fileInfo, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	metadata.SizeBytes = fileInfo.Size()
	metadata.DurationSecs = int(duration.Seconds())
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return nil, fmt.Errorf("update metadata: %w", err)
	}

	return &Backup{
		Path:     backupPath,
		Metadata: metadata,
		SizeMB:   int(fileInfo.Size() / (1024 * 1024)),
	}, nil
}

// List returns every backup in the directory, newest first.
func List(dir string) ([]Backup, error) {
	if dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []Backup{}, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.sql.gz"))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	backups := make([]Backup, 0, len(matches))
	for _, path := range matches {
		fileInfo, err := os.Stat(path)
		if err != nil {
			continue
		}

		metadataPath := strings.TrimSuffix(path, ".sql.gz") + ".meta.json"
		metadata, err := loadMetadata(metadataPath)
		if err != nil {
			// Sidecar missing; reconstruct the basics from the file itself.
			metadata = Metadata{
				BackupName:    filepath.Base(path),
				Timestamp:     fileInfo.ModTime(),
				Reason:        "unknown",
				RetentionDays: 30,
			}
		}

		backups = append(backups, Backup{
			Path:     path,
			Metadata: metadata,
			SizeMB:   int(fileInfo.Size() / (1024 * 1024)),
			Age:      time.Since(fileInfo.ModTime()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Metadata.Timestamp.After(backups[j].Metadata.Timestamp)
	})
	return backups, nil
}

// Prune removes backups older than their retention period. With dryRun the
// candidates are returned without deleting anything.
func Prune(dir string, defaultRetentionDays int, dryRun bool) ([]Backup, error) {
	if defaultRetentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive")
	}

	backups, err := List(dir)
	if err != nil {
		return nil, err
	}

	deleted := []Backup{}
	for _, backup := range backups {
		retention := time.Duration(backup.Metadata.RetentionDays) * 24 * time.Hour
		if backup.Metadata.RetentionDays == 0 {
			retention = time.Duration(defaultRetentionDays) * 24 * time.Hour
		}
		if backup.Age <= retention {
			continue
		}

		if !dryRun {
			if err := os.Remove(backup.Path); err != nil {
				return deleted, fmt.Errorf("delete %s: %w", backup.Path, err)
			}
			_ = os.Remove(strings.TrimSuffix(backup.Path, ".sql.gz") + ".meta.json")
		}
		deleted = append(deleted, backup)
	}
	return deleted, nil
}

// ParseDatabaseURL splits a postgres:// connection string into its parts.
func ParseDatabaseURL(dbURL string) (host, port, database, user, password string, err error) {
	if !strings.HasPrefix(dbURL, "postgresql://") && !strings.HasPrefix(dbURL, "postgres://") {
		return "", "", "", "", "", fmt.Errorf("invalid DATABASE_URL (must start with postgresql:// or postgres://)")
	}

	rest := strings.TrimPrefix(strings.TrimPrefix(dbURL, "postgresql://"), "postgres://")
	parts := strings.SplitN(rest, "@", 2)
	if len(parts) != 2 {
		return "", "", "", "", "", fmt.Errorf("invalid DATABASE_URL (missing @ separator)")
	}

	userPass := parts[0]
	if strings.Contains(userPass, ":") {
		up := strings.SplitN(userPass, ":", 2)
		user, password = up[0], up[1]
	} else {
		user = userPass
	}

	rest = parts[1]
	if idx := strings.Index(rest, "?"); idx >= 0 {
		rest = rest[:idx]
	}
	parts = strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return "", "", "", "", "", fmt.Errorf("invalid DATABASE_URL (missing database name)")
	}

	hostPort, database := parts[0], parts[1]
	if strings.Contains(hostPort, ":") {
		hp := strings.SplitN(hostPort, ":", 2)
		host, port = hp[0], hp[1]
	} else {
		host, port = hostPort, "5432"
	}
	return host, port, database, user, password, nil
}

func createPgpassFile(host, port, database, user, password string) (string, error) {
	tmpFile, err := os.CreateTemp("", "pgpass-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = tmpFile.Close() }()

	if err := os.Chmod(tmpFile.Name(), 0o600); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", err
	}

	line := fmt.Sprintf("%s:%s:%s:%s:%s\n", host, port, database, user, password)
	if _, err := tmpFile.WriteString(line); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", err
	}
	return tmpFile.Name(), nil
}

func runPgDump(ctx context.Context, pgpassFile string, opts CreateOptions, outputPath string) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = outFile.Close() }()

	pgDumpCmd := exec.CommandContext(ctx, "pg_dump",
		"-h", opts.Host,
		"-p", opts.Port,
		"-U", opts.User,
		"-d", opts.Database,
		"--format=plain",
		"--no-owner",
		"--no-acl",
		"--clean",
		"--if-exists",
	)
	pgDumpCmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSFILE=%s", pgpassFile))

	pgDumpOut, err := pgDumpCmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	gzipCmd := exec.CommandContext(ctx, "gzip")
	gzipCmd.Stdin = pgDumpOut
	gzipCmd.Stdout = outFile

	var pgDumpErr, gzipErr strings.Builder
	pgDumpCmd.Stderr = &pgDumpErr
	gzipCmd.Stderr = &gzipErr

	if err := gzipCmd.Start(); err != nil {
		return fmt.Errorf("start gzip: %w", err)
	}
	if err := pgDumpCmd.Start(); err != nil {
		return fmt.Errorf("start pg_dump: %w", err)
	}
	if err := pgDumpCmd.Wait(); err != nil {
		return fmt.Errorf("pg_dump: %w\nstderr: %s", err, pgDumpErr.String())
	}
	if err := gzipCmd.Wait(); err != nil {
		return fmt.Errorf("gzip: %w\nstderr: %s", err, gzipErr.String())
	}
	return nil
}

func validateArchive(path string) error {
	cmd := exec.Command("gzip", "-t", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gzip integrity check failed: %w", err)
	}
	return nil
}

func writeMetadata(path string, metadata Metadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadMetadata(path string) (Metadata, error) {
	var metadata Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata, err
	}
	err = json.Unmarshal(data, &metadata)
	return metadata, err
}
