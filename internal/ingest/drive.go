// internal/ingest/drive.go
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// FileSource abstracts the remote store transaction exports are pulled from.
type FileSource interface {
	ListFiles(folderID string) ([]*RemoteFile, error)
	FindFolderByPath(path string) (string, error)
	Download(fileID string, w io.Writer) error
}

// RemoteFile describes one export available for ingestion.
type RemoteFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// DriveSource reads exports from a Google Drive folder using a service
// account with read-only scope.
type DriveSource struct {
	srv *drive.Service
}

func NewDriveSource(credentialsJSON string) (*DriveSource, error) {
	config, err := google.JWTConfigFromJSON(
		[]byte(credentialsJSON),
		drive.DriveReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %v", err)
	}

	client := config.Client(context.Background())

	srv, err := drive.NewService(context.Background(), option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %v", err)
	}

	return &DriveSource{srv: srv}, nil
}

func (s *DriveSource) ListFiles(folderID string) ([]*RemoteFile, error) {
	if folderID == "" {
		folderID = "root"
	}

	result, err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
		Fields("files(id, name, mimeType, modifiedTime, size)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list files: %v", err)
	}

	var files []*RemoteFile
	for _, f := range result.Files {
		files = append(files, &RemoteFile{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
			Size:         f.Size,
		})
	}

	return files, nil
}

func (s *DriveSource) Download(fileID string, w io.Writer) error {
	resp, err := s.srv.Files.Get(fileID).Download()
	if err != nil {
		return fmt.Errorf("unable to download file: %v", err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// FindFolderByPath resolves a slash-separated folder path to a folder ID,
// walking from the Drive root one segment at a time.
func (s *DriveSource) FindFolderByPath(path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	currentID := "root"
	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
				currentID, folder)).
			Fields("files(id, name)").
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %v", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}
