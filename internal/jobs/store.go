package jobs

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/database"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
)

// ErrNotFound is returned when a job ID does not exist.
var ErrNotFound = errors.New("jobs: not found")

// Store persists jobs in SQLite.
type Store struct {
	db *database.DB
}

// NewStore wraps an open, migrated database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

const jobColumns = `id, type, status, created_at, updated_at, input_file_path, output_file_path,
	text_content, voice_id, background_audio_file_path, volume, error`

// Save inserts a new job.
func (s *Store) Save(j *Job) error {
	_, err := s.db.Exec(`INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Type), string(j.Status),
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt),
		j.InputFilePath, j.OutputFilePath,
		j.TextContent, j.VoiceID,
		j.BackgroundAudioFilePath, j.Volume, j.Error,
	)
	if err != nil {
		return fmt.Errorf("[jobs] save %s: %w", j.ID, err)
	}
	logger.Debugf("[jobs] saved %s", j)
	return nil
}

// Update writes the job's mutable fields.
func (s *Store) Update(j *Job) error {
	res, err := s.db.Exec(`UPDATE jobs SET status = ?, updated_at = ?, error = ? WHERE id = ?`,
		string(j.Status), formatTime(j.UpdatedAt), j.Error, j.ID)
	if err != nil {
		return fmt.Errorf("[jobs] update %s: %w", j.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("[jobs] update %s: %w", j.ID, ErrNotFound)
	}
	logger.Debugf("[jobs] updated %s", j)
	return nil
}

// Get loads a job by ID.
func (s *Store) Get(id string) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("[jobs] get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("[jobs] get %s: %w", id, err)
	}
	return j, nil
}

// Delete removes a job.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("[jobs] delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("[jobs] delete %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns jobs newest first. An empty status matches every job;
// limit <= 0 means no limit.
func (s *Store) List(status Status, limit, offset int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("[jobs] list: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("[jobs] list: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(sc scanner) (*Job, error) {
	var (
		j                    Job
		jobType, status      string
		createdAt, updatedAt string
	)
	err := sc.Scan(&j.ID, &jobType, &status, &createdAt, &updatedAt,
		&j.InputFilePath, &j.OutputFilePath,
		&j.TextContent, &j.VoiceID,
		&j.BackgroundAudioFilePath, &j.Volume, &j.Error)
	if err != nil {
		return nil, err
	}
	j.Type = Type(jobType)
	j.Status = Status(status)
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
