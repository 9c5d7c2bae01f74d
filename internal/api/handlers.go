package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/viva/internal/engine"
)

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req engine.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid request body", engine.ErrInvalidInput))
		return
	}
	res, err := s.engine.Start(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Progress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type answerBody struct {
	Text       string `json:"text"`
	QuestionID string `json:"question_id,omitempty"`
}

// submitResponse accepts either a JSON text answer or a multipart form with
// an "audio" file part.
func (s *Server) submitResponse(w http.ResponseWriter, r *http.Request) {
	req := engine.SubmitRequest{SessionID: chi.URLParam(r, "id")}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		audio, mimeType, err := s.readAudio(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req.Audio = audio
		req.MimeType = mimeType
		req.QuestionID = r.FormValue("question_id")
	} else {
		var body answerBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: invalid request body", engine.ErrInvalidInput))
			return
		}
		req.Text = body.Text
		req.QuestionID = body.QuestionID
	}

	res, err := s.engine.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) readAudio(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	if s.cfg.MaxAudioBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxAudioBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", fmt.Errorf("%w: %v", engine.ErrInvalidInput, err)
	}
	f, hdr, err := r.FormFile("audio")
	if err != nil {
		return nil, "", fmt.Errorf("%w: audio part is required", engine.ErrInvalidInput)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read audio: %v", engine.ErrInvalidInput, err)
	}
	mimeType := hdr.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mime.TypeByExtension(strings.ToLower(extOf(hdr.Filename)))
	}
	return data, mimeType, nil
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.ForceEnd(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) questionAudio(w http.ResponseWriter, r *http.Request) {
	audio, err := s.engine.SpeakQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", audio.MimeType)
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}
