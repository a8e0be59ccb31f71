// internal/session/session.go
package session

import (
	"crypto/ed25519"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the client-local session cookie.
const CookieName = "ballot_session"

// privateKey and publicKey are used for signing and verifying session tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TOKEN_EXPIRE_TIME_SEC indicates how many seconds until token expiration (0 => never).
	TOKEN_EXPIRE_TIME_SEC int
)

// Session is the client-local identity record: who this device is within a
// room. It is a cache, not an authority: the store's participant row decides
// host rights; IsHost here only drives UI affordances.
type Session struct {
	ParticipantID uuid.UUID `json:"participantId"`
	RoomID        uuid.UUID `json:"roomId"`
	RoomCode      string    `json:"roomCode"`
	IsHost        bool      `json:"isHost"`
	Name          string    `json:"name"`
}

// parseTokenExpireTime reads the TOKEN_EXPIRE_TIME env var and sets TOKEN_EXPIRE_TIME_SEC accordingly.
func parseTokenExpireTime() {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		TOKEN_EXPIRE_TIME_SEC = 0
	} else {
		d, err := time.ParseDuration(duration)
		if err != nil {
			fmt.Printf("failed to parse token expire time: %v\n", err)
			os.Exit(1)
		}
		TOKEN_EXPIRE_TIME_SEC = int(d.Seconds())
	}
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	parseTokenExpireTime()
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	parseTokenExpireTime()
	return nil
}

// CreateToken signs a session record into a JWT.
func CreateToken(s Session) (string, error) {
	claims := jwt.MapClaims{
		"sub":     s.ParticipantID.String(),
		"room_id": s.RoomID.String(),
		"code":    s.RoomCode,
		"is_host": s.IsHost,
		"name":    s.Name,
	}

	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// ParseToken verifies a token string and returns the session it carries.
func ParseToken(tokenString string) (*Session, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid jwt claims")
	}

	sub, _ := claims["sub"].(string)
	participantID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("bad participant id in token: %w", err)
	}
	roomIDStr, _ := claims["room_id"].(string)
	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		return nil, fmt.Errorf("bad room id in token: %w", err)
	}
	code, _ := claims["code"].(string)
	isHost, _ := claims["is_host"].(bool)
	name, _ := claims["name"].(string)

	return &Session{
		ParticipantID: participantID,
		RoomID:        roomID,
		RoomCode:      code,
		IsHost:        isHost,
		Name:          name,
	}, nil
}

// FromRequest reads the session cookie off a request. Returns nil, nil when
// the client simply has no session.
func FromRequest(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}
	return ParseToken(c.Value)
}

// Write sets the session cookie for a freshly created or rejoined identity.
func Write(w http.ResponseWriter, s Session) error {
	token, err := CreateToken(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie; used by the explicit leave action.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
