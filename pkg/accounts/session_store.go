package accounts

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize       = 32
	keySize        = 32
	kdfIterations  = 100000
	keyringService = "tweetmap"
	keyringKey     = "session-store-passphrase"
)

// SessionStore keeps per-account session tokens encrypted at rest.
// Tokens are refreshed in place after a successful login and reused on the
// next lease so accounts do not have to log in every time.
type SessionStore struct {
	path       string
	passphrase string
	mu         sync.Mutex
	tokens     map[string]string
}

// sessionFile is the on-disk shape of the store
type sessionFile struct {
	Salt      string `json:"salt"`
	Encrypted string `json:"encrypted"`
}

// NewSessionStore opens (or creates) the encrypted store at path. The
// passphrase comes from TWEETMAP_SESSION_KEY if set, otherwise from the
// system keyring, where one is generated on first use.
func NewSessionStore(path string) (*SessionStore, error) {
	passphrase, err := resolvePassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session store passphrase: %w", err)
	}
	return NewSessionStoreWithPassphrase(path, passphrase)
}

// NewSessionStoreWithPassphrase opens the store with an explicit passphrase
func NewSessionStoreWithPassphrase(path, passphrase string) (*SessionStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create session store directory: %w", err)
		}
	}

	s := &SessionStore{
		path:       path,
		passphrase: passphrase,
		tokens:     make(map[string]string),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Get returns the persisted session token for an account, if any
func (s *SessionStore) Get(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[username]
}

// Put stores a session token and writes the store to disk
func (s *SessionStore) Put(username, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[username] = token
	return s.save()
}

// Delete removes an account's token and writes the store to disk
func (s *SessionStore) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, username)
	return s.save()
}

// Restore copies persisted tokens onto the given accounts
func (s *SessionStore) Restore(accts []*Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range accts {
		if token, ok := s.tokens[a.Username]; ok {
			a.SessionToken = token
		}
	}
}

func (s *SessionStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read session store: %w", err)
	}

	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse session store: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return fmt.Errorf("failed to decode salt: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	plaintext, err := decrypt(ciphertext, s.passphrase, salt)
	if err != nil {
		return fmt.Errorf("failed to decrypt session store: %w", err)
	}

	if err := json.Unmarshal(plaintext, &s.tokens); err != nil {
		return fmt.Errorf("failed to parse decrypted tokens: %w", err)
	}

	return nil
}

func (s *SessionStore) save() error {
	plaintext, err := json.Marshal(s.tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	ciphertext, err := encrypt(plaintext, s.passphrase, salt)
	if err != nil {
		return fmt.Errorf("failed to encrypt session store: %w", err)
	}

	file := sessionFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal session store: %w", err)
	}

	return os.WriteFile(s.path, data, 0600)
}

// deriveKey derives an AES key from the passphrase with PBKDF2
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfIterations, keySize, sha256.New)
}

// encrypt seals plaintext with AES-GCM; the nonce is prepended
func encrypt(plaintext []byte, passphrase string, salt []byte) ([]byte, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens ciphertext produced by encrypt
func decrypt(ciphertext []byte, passphrase string, salt []byte) ([]byte, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, sealed, nil)
}

// resolvePassphrase finds or creates the store passphrase
func resolvePassphrase() (string, error) {
	if pass := os.Getenv("TWEETMAP_SESSION_KEY"); pass != "" {
		return pass, nil
	}

	pass, err := keyring.Get(keyringService, keyringKey)
	if err == nil {
		return pass, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("keyring unavailable (set TWEETMAP_SESSION_KEY): %w", err)
	}

	// First run: generate a passphrase and keep it in the keyring
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	pass = hex.EncodeToString(raw)
	if err := keyring.Set(keyringService, keyringKey, pass); err != nil {
		return "", fmt.Errorf("failed to store passphrase in keyring: %w", err)
	}

	return pass, nil
}
