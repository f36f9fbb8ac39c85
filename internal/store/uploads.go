package store

import (
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
)

// ErrUploadNotFound 上传记录不存在
var ErrUploadNotFound = eris.New("upload not found")

// Upload 已上传的成绩工作簿
type Upload struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"-"`
	FileSize  int64     `json:"fileSize"`
	FileHash  string    `json:"fileHash"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateUpload 记录上传文件
func (s *Store) CreateUpload(u Upload) error {
	_, err := s.db.Exec(`
		INSERT INTO uploads (id, filename, file_path, file_size, file_hash)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Filename, u.FilePath, u.FileSize, u.FileHash)
	if err != nil {
		return eris.Wrap(err, "failed to create upload")
	}
	return nil
}

// GetUpload 按 ID 读取上传记录
func (s *Store) GetUpload(id string) (*Upload, error) {
	u := &Upload{}
	err := s.db.QueryRow(`
		SELECT id, filename, file_path, file_size, file_hash, created_at
		FROM uploads WHERE id = ?
	`, id).Scan(&u.ID, &u.Filename, &u.FilePath, &u.FileSize, &u.FileHash, &u.CreatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrUploadNotFound, "id %s", id)
		}
		return nil, eris.Wrap(err, "failed to read upload")
	}
	return u, nil
}

// LatestUpload 最近一次上传
func (s *Store) LatestUpload() (*Upload, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM uploads ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrap(ErrUploadNotFound, "no uploads")
		}
		return nil, eris.Wrap(err, "failed to read latest upload")
	}
	return s.GetUpload(id)
}
