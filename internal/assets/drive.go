package assets

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveDirectory читает файлы из папки Google Drive: вложенные папки
// первого уровня становятся Folder у их файлов.
type DriveDirectory struct {
	svc    *drive.Service
	rootID string
}

// NewDriveDirectory авторизуется ключом сервисного аккаунта (только чтение).
func NewDriveDirectory(ctx context.Context, credentialsFile, rootID string) (*DriveDirectory, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Google Drive: %w", err)
	}
	return &DriveDirectory{svc: svc, rootID: rootID}, nil
}

// List обходит корневую папку и её подпапки первого уровня.
func (d *DriveDirectory) List(ctx context.Context) ([]Entry, error) {
	top, err := d.children(ctx, d.rootID)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, f := range top {
		if f.MimeType != folderMimeType {
			out = append(out, Entry{ID: f.Id, Name: f.Name, Link: f.WebViewLink})
			continue
		}
		files, err := d.children(ctx, f.Id)
		if err != nil {
			return nil, err
		}
		for _, c := range files {
			if c.MimeType == folderMimeType {
				continue
			}
			out = append(out, Entry{ID: c.Id, Name: c.Name, Link: c.WebViewLink, Folder: f.Name})
		}
	}

	log.WithField("files", len(out)).Debug("Листинг Google Drive получен")
	return out, nil
}

func (d *DriveDirectory) Exists(ctx context.Context, name string) (Entry, bool, error) {
	entries, err := d.List(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := find(entries, name)
	return e, ok, nil
}

func (d *DriveDirectory) children(ctx context.Context, parentID string) ([]*drive.File, error) {
	var (
		out   []*drive.File
		token string
	)
	for {
		call := d.svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", parentID)).
			Fields("nextPageToken, files(id, name, mimeType, webViewLink)").
			PageSize(1000).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("ошибка листинга папки %s: %w", parentID, err)
		}
		out = append(out, res.Files...)
		if res.NextPageToken == "" {
			return out, nil
		}
		token = res.NextPageToken
	}
}
