package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracemark/tracemark"
	"github.com/tracemark/tracemark/internal/store"
	"github.com/tracemark/tracemark/scanner"
)

// embedResponse is the embed result plus the fields the web client needs
// to fetch the output.
type embedResponse struct {
	tracemark.EmbedResult
	SessionID   string `json:"session_id"`
	DownloadURL string `json:"download_url"`
}

// handleEmbed watermarks an uploaded file for one recipient. Multipart
// form: file, identity (required), method, strength, interval.
func (s *Server) handleEmbed(c *gin.Context) {
	identity := c.PostForm("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	opts := []tracemark.Option{
		tracemark.WithMethod(tracemark.Method(c.DefaultPostForm("method", s.cfg.Watermark.Method))),
	}
	strength := s.cfg.Watermark.Strength
	if v := c.PostForm("strength"); v != "" {
		strength, err = strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "strength must be a number"})
			return
		}
	}
	opts = append(opts, tracemark.WithStrength(strength), tracemark.WithLogger(s.logger))

	interval := s.cfg.Watermark.Interval
	if v := c.PostForm("interval"); v != "" {
		interval, err = strconv.Atoi(v)
		if err != nil || interval < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be a positive integer"})
			return
		}
	}

	w, err := tracemark.New(identity, opts...)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := uuid.NewString()
	base := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	inputName := fmt.Sprintf("%s_%s%s", base, sessionID[:8], filepath.Ext(file.Filename))
	inputPath := filepath.Join(s.cfg.Storage.UploadDir, inputName)
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saving upload failed"})
		return
	}

	outputName := fmt.Sprintf("%s_%s_watermarked.png", base, sessionID[:8])
	outputPath := filepath.Join(s.cfg.Storage.OutputDir, outputName)

	result := w.EmbedFile(c.Request.Context(), inputPath, outputPath, interval)

	status := "completed"
	if !result.Success {
		status = "failed"
	}
	if s.store != nil {
		if _, err := s.store.InsertSession(&store.Session{
			SessionID:         sessionID,
			Identity:          identity,
			InputFile:         inputName,
			OutputFile:        outputName,
			Signature:         result.Signature,
			Method:            string(result.Method),
			Status:            status,
			FileSize:          result.OutputSizeBytes,
			TotalFrames:       result.TotalFrames,
			WatermarkedFrames: result.WatermarkedFrames,
		}); err != nil {
			s.logger.Error("recording session failed", zap.Error(err), zap.String("session_id", sessionID))
		}
	}

	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": result.Error})
		return
	}
	c.JSON(http.StatusOK, embedResponse{
		EmbedResult: result,
		SessionID:   sessionID,
		DownloadURL: "/download/" + outputName,
	})
}

// handleVerify checks an uploaded file for the given recipient's
// watermark. Multipart form: file, identity (required), method, strength.
func (s *Server) handleVerify(c *gin.Context) {
	identity := c.PostForm("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	opts := []tracemark.Option{tracemark.WithLogger(s.logger)}
	if v := c.PostForm("method"); v != "" {
		opts = append(opts, tracemark.WithMethod(tracemark.Method(v)))
	}
	if v := c.PostForm("strength"); v != "" {
		strength, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "strength must be a number"})
			return
		}
		opts = append(opts, tracemark.WithStrength(strength))
	}
	w, err := tracemark.New(identity, opts...)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dir, err := os.MkdirTemp("", "tracemark-verify-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saving upload failed"})
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saving upload failed"})
		return
	}

	c.JSON(http.StatusOK, w.Verify(c.Request.Context(), path))
}

type scanRequest struct {
	// Reference is the path of the original content to compare against.
	Reference string `json:"reference" binding:"required"`
	// Dir is the directory tree of suspect copies to scan.
	Dir       string  `json:"dir" binding:"required"`
	Threshold float64 `json:"threshold"`
}

// handleScan walks a directory of suspect files, comparing each against
// the reference and recording every match. Attribution comes from the
// embedded watermark when one survives in the copy.
func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	threshold := req.Threshold
	if threshold == 0 {
		threshold = s.cfg.Scanner.Threshold
	}

	sc, err := scanner.New(req.Reference,
		scanner.WithThreshold(threshold),
		scanner.WithSampleFrames(s.cfg.Scanner.SampleFrames),
		scanner.WithLogger(s.logger))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matches, err := sc.ScanDir(c.Request.Context(), req.Dir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.store != nil {
		for i := range matches {
			m := &matches[i]
			if _, err := s.store.InsertDetection(&store.Detection{
				Path:       m.Path,
				Similarity: m.Similarity,
				Identity:   m.Identity,
				Signature:  m.Signature,
				DetectedAt: m.DetectedAt,
			}); err != nil {
				s.logger.Error("recording detection failed", zap.Error(err), zap.String("path", m.Path))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"scanned_dir": req.Dir,
		"matches":     matches,
	})
}

type sessionResponse struct {
	SessionID         string    `json:"session_id"`
	Identity          string    `json:"identity"`
	OutputFile        string    `json:"output_file"`
	Signature         string    `json:"signature"`
	Method            string    `json:"method"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	TotalFrames       int       `json:"total_frames"`
	WatermarkedFrames int       `json:"watermarked_frames"`
}

// handleHistory lists recent embedding sessions, newest first.
func (s *Server) handleHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	sessions, err := s.store.ListSessions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionResponse{
			SessionID:         sess.SessionID,
			Identity:          sess.Identity,
			OutputFile:        sess.OutputFile,
			Signature:         sess.Signature,
			Method:            sess.Method,
			Status:            sess.Status,
			CreatedAt:         sess.CreatedAt,
			TotalFrames:       sess.TotalFrames,
			WatermarkedFrames: sess.WatermarkedFrames,
		})
	}
	c.JSON(http.StatusOK, out)
}

type detectionResponse struct {
	Path       string    `json:"path"`
	Similarity float64   `json:"similarity"`
	Identity   string    `json:"identity,omitempty"`
	Signature  string    `json:"signature,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// handleDetections lists recent leak detections, newest first.
func (s *Server) handleDetections(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	detections, err := s.store.ListDetections(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]detectionResponse, 0, len(detections))
	for _, d := range detections {
		out = append(out, detectionResponse{
			Path:       d.Path,
			Similarity: d.Similarity,
			Identity:   d.Identity,
			Signature:  d.Signature,
			DetectedAt: d.DetectedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// handleDownload serves a watermarked output as an attachment. The
// filename is reduced to its base to keep requests inside the output
// directory.
func (s *Server) handleDownload(c *gin.Context) {
	name := filepath.Base(c.Param("filename"))
	path := filepath.Join(s.cfg.Storage.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, name)
}
