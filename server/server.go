// Package server is a reference remote store: it accepts submissions and
// lists them back with links to the uploaded audio.
package server

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rekam/entries"
	"rekam/log"
)

const maxUploadBytes = 32 << 20

type Options struct {
	// PublicURL prefixes audio links; empty yields relative /uploads/ paths.
	PublicURL string
}

type Server struct {
	store  *Store
	opts   Options
	engine *gin.Engine
}

type entryJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	URL     string `json:"url"`
}

type listResponse struct {
	Success bool        `json:"success"`
	Datas   []entryJSON `json:"datas"`
}

type submitResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    *entryJSON `json:"data,omitempty"`
}

func New(store *Store, opts Options) *Server {
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")

	engine := gin.New()
	engine.MaxMultipartMemory = maxUploadBytes
	engine.Use(gin.Recovery(), accessLog(), cors.Default())

	s := &Server{store: store, opts: opts, engine: engine}
	api := engine.Group("/api/data")
	{
		api.GET("", s.list)
		api.POST("/submit", s.submit)
	}
	engine.Static("/"+uploadsDir, store.UploadDir())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) list(c *gin.Context) {
	recs, err := s.store.List(c.Request.Context())
	if err != nil {
		log.Errorf("list records: %v", err)
		c.JSON(http.StatusInternalServerError, submitResponse{Message: "could not load entries"})
		return
	}
	out := make([]entryJSON, 0, len(recs))
	for _, r := range recs {
		out = append(out, s.toJSON(r))
	}
	c.JSON(http.StatusOK, listResponse{Success: true, Datas: out})
}

func (s *Server) submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	name := strings.TrimSpace(c.PostForm("name"))
	address := strings.TrimSpace(c.PostForm("address"))
	hdr, fileErr := c.FormFile("audio")
	if name == "" || address == "" || fileErr != nil {
		c.JSON(http.StatusBadRequest, submitResponse{Message: "name, address and audio are required"})
		return
	}

	f, err := hdr.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, submitResponse{Message: "unreadable audio"})
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil || len(audio) == 0 {
		c.JSON(http.StatusBadRequest, submitResponse{Message: "empty audio"})
		return
	}

	mediaType := hdr.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	rec, err := s.store.Create(c.Request.Context(), name, address, mediaType, audioExt(hdr.Filename, mediaType), audio)
	if err != nil {
		log.Errorf("create record: %v", err)
		c.JSON(http.StatusInternalServerError, submitResponse{Message: "could not save entry"})
		return
	}
	out := s.toJSON(rec)
	c.JSON(http.StatusCreated, submitResponse{Success: true, Data: &out})
}

func (s *Server) toJSON(r Record) entryJSON {
	return entryJSON{
		ID:      r.ID,
		Name:    r.Name,
		Address: r.Address,
		URL:     s.opts.PublicURL + "/" + uploadsDir + "/" + r.AudioFile,
	}
}

// audioExt keeps a short alphanumeric extension from the upload filename and
// falls back to the media type.
func audioExt(filename, mediaType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && len(ext) <= 6 && isAlnum(ext[1:]) {
		return ext
	}
	if base, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = base
	}
	return filepath.Ext(entries.AudioFilename(mediaType))
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.HTTPAccess(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
