package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/warikan-app/warikan-api/internal/platform/logger"
	"github.com/warikan-app/warikan-api/internal/ports/out/idempotency"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

// createIdempotent runs create and writes its result as 201.
//
// With an Idempotency-Key header:
//   - the same subject+key+route+body replays the stored response
//   - the same subject+key+route with a different body is rejected (409)
//
// canon is the request body after normalization; it is what gets hashed.
func (s *Server) createIdempotent(w http.ResponseWriter, r *http.Request, route string, canon any, create func() (any, error)) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	claims, authed := AuthStateFromContext(ctx).Claims()
	if s.Idem == nil || key == "" || !authed {
		resp, err := create()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	bodyHash, err := hashBody(canon)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	log := logger.From(ctx)
	metaFP := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: claims.Subject,
		Method:  r.Method,
		Route:   route,
	}
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, codeIdemKeyReuse, "idempotency key reuse with different payload", nil)
			return
		}
	} else if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
		ContentType: "text/plain",
		Body:        []byte(bodyHash),
		CreatedAt:   s.Clock.Now().UTC(),
	}); err != nil {
		log.Warn("idempotency meta not stored", logger.Route(route), logger.Err(err))
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	rec, ok, err := s.Idem.Get(ctx, respFP)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if ok && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set(headerReplayed, "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	resp, err := create()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  http.StatusCreated,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.Clock.Now().UTC(),
	}); err != nil {
		log.Warn("idempotency response not stored", logger.Route(route), logger.Err(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(b)
}

func hashBody(canon any) (string, error) {
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
