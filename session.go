package main

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"

	"shift_handover/internal/shift"
)

const sessionName = "handover"

// sessionKeys derives the cookie hash key and AES-256 block key from secret.
func sessionKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	kdf := hkdf.New(sha256.New, secret, nil, []byte("shift-handover session cookie"))
	hashKey = make([]byte, 64)
	if _, err := io.ReadFull(kdf, hashKey); err != nil {
		return nil, nil, err
	}
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(kdf, blockKey); err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

// newSessionStore builds the cookie store. An empty secret gets a random one,
// so sessions do not outlive the process.
func newSessionStore(secret string, log *zap.Logger) (*sessions.CookieStore, error) {
	raw := []byte(secret)
	if secret == "" {
		log.Warn("SESSION_SECRET not set, using a random key; shift selection resets on restart")
		raw = make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("session secret: %w", err)
		}
	}
	hashKey, blockKey, err := sessionKeys(raw)
	if err != nil {
		return nil, fmt.Errorf("session keys: %w", err)
	}

	cs := sessions.NewCookieStore(hashKey, blockKey)
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.SameSite = http.SameSiteLaxMode
	cs.Options.MaxAge = 7 * 24 * 60 * 60
	return cs, nil
}

// currentShift is the shift the browser last selected, or the one running now.
func (s *server) currentShift(r *http.Request) shift.Info {
	info := shift.Current(s.now())
	session, err := s.sessions.Get(r, sessionName)
	if err != nil {
		return info
	}
	date, _ := session.Values["date"].(string)
	name, _ := session.Values["type"].(string)
	t, err := shift.ParseType(name)
	if date == "" || err != nil {
		return info
	}
	return shift.Info{Date: date, Type: t}
}

func (s *server) rememberShift(w http.ResponseWriter, r *http.Request, info shift.Info) error {
	session, _ := s.sessions.Get(r, sessionName)
	session.Values["date"] = info.Date
	session.Values["type"] = info.Type.String()
	return session.Save(r, w)
}
