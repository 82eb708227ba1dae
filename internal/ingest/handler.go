// internal/ingest/handler.go
package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	source      FileSource
	service     *Service
	downloadDir string
}

func NewHandler(source FileSource, service *Service, downloadDir string) *Handler {
	return &Handler{
		source:      source,
		service:     service,
		downloadDir: downloadDir,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/ingest/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/ingest/files/ingest", h.IngestFile).Methods("POST")
	router.HandleFunc("/api/ingest/folder", h.IngestFolder).Methods("POST")
	router.HandleFunc("/api/ingest/folder/download", h.DownloadAndIngestFolder).Methods("POST")
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	folderPath := query.Get("path")

	var err error
	if folderPath != "" {
		folderID, err = h.source.FindFolderByPath(folderPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	files, err := h.source.ListFiles(folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	businessID := query.Get("businessId")
	fileID := query.Get("fileId")
	if businessID == "" || fileID == "" {
		http.Error(w, "businessId and fileId parameters are required", http.StatusBadRequest)
		return
	}

	report, err := h.service.IngestFile(r.Context(), businessID, fileID)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (h *Handler) IngestFolder(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	businessID := query.Get("businessId")
	folderPath := query.Get("path")
	if businessID == "" || folderPath == "" {
		http.Error(w, "businessId and path parameters are required", http.StatusBadRequest)
		return
	}

	reports, err := h.service.IngestFolder(r.Context(), businessID, folderPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reports)
}

// DownloadAndIngestFolder mirrors a folder's exports to local disk first,
// converting XLSX files to CSV, then ingests the local copies.
func (h *Handler) DownloadAndIngestFolder(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	businessID := query.Get("businessId")
	folderPath := query.Get("path")
	if businessID == "" || folderPath == "" {
		http.Error(w, "businessId and path parameters are required", http.StatusBadRequest)
		return
	}

	folderID, err := h.source.FindFolderByPath(folderPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	paths, err := NewDownloader(h.source).DownloadFolderCSV(r.Context(), DownloadOptions{
		FolderID:    folderID,
		DownloadDir: h.downloadDir,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("download failed: %v", err), http.StatusInternalServerError)
		return
	}

	reports, err := h.service.IngestLocalFiles(r.Context(), businessID, paths)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reports)
}
