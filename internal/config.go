package internal

import (
	"fmt"
	"os"
	"strings"
	"time"

	"pair-relay/errors"

	"github.com/pion/webrtc/v4"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3001"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	JWTSecret       string        `env:"JWT_SECRET,required=true"`
	TokenTTL        time.Duration `env:"TOKEN_TTL,default=24h"`
	Credentials     string        `env:"CREDENTIALS"`
	CredentialsFile string        `env:"CREDENTIALS_FILE"`

	MessageCapacity int           `env:"MESSAGE_CAPACITY,default=10"`
	MaxMediaBytes   int           `env:"MAX_MEDIA_BYTES,default=3145728"`
	MaxTextLength   int           `env:"MAX_TEXT_LENGTH,default=4000"`
	RevealDuration  time.Duration `env:"REVEAL_DURATION,default=5s"`
	EphemeralTTL    time.Duration `env:"EPHEMERAL_TTL,default=5m"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`
	ReadHeaderTimeout    time.Duration `env:"READ_HEADER_TIMEOUT,default=5s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartMaxFailures   int           `env:"RESTART_MAX_FAILURES,default=5"`
	RestartMaxBackoff    time.Duration `env:"RESTART_MAX_BACKOFF,default=10s"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS,default=*"`

	ModerationEnabled bool   `env:"MODERATION_ENABLED,default=false"`
	CharReplacement   string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	ICEServers     string `env:"ICE_SERVERS,default=stun:stun.l.google.com:19302"`
	TurnUsername   string `env:"TURN_USERNAME"`
	TurnCredential string `env:"TURN_CREDENTIAL"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// ICEServerList turns ICE_SERVERS into pion servers.
// TURN urls carry the shared TURN credentials, STUN urls carry none.
func (c Config) ICEServerList() []webrtc.ICEServer {
	urls := splitList(c.ICEServers)
	stun, turn := lo.FilterReject(urls, func(url string, _ int) bool {
		return !strings.HasPrefix(url, "turn:") && !strings.HasPrefix(url, "turns:")
	})

	var servers []webrtc.ICEServer
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   c.TurnUsername,
			Credential: c.TurnCredential,
		})
	}
	return servers
}

func splitList(raw string) []string {
	return lo.Compact(lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// CredentialsFile is the YAML layout of CREDENTIALS_FILE:
//
//	participants:
//	  - identity: alice
//	    secret: $argon2id$v=19$m=65536,t=1,p=4$...
type CredentialsFile struct {
	Participants []struct {
		Identity string `yaml:"identity"`
		Secret   string `yaml:"secret"`
	} `yaml:"participants"`
}

// LoadCredentials builds the identity -> secret table.
// The inline CREDENTIALS value ("alice:secret,bob:secret") wins over the file.
// Argon2id hashes contain commas, so they only fit in the file.
func LoadCredentials(inline, path string) (map[string]string, error) {
	if strings.TrimSpace(inline) != "" {
		return ParseCredentials(inline)
	}
	if path == "" {
		return nil, errors.ErrEmptyCredentials
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	var file CredentialsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedCredentials, err)
	}

	table := make(map[string]string, len(file.Participants))
	for _, p := range file.Participants {
		if err := put(table, p.Identity, p.Secret); err != nil {
			return nil, err
		}
	}
	if len(table) == 0 {
		return nil, errors.ErrEmptyCredentials
	}
	return table, nil
}

func ParseCredentials(inline string) (map[string]string, error) {
	table := make(map[string]string)
	for _, entry := range splitList(inline) {
		identity, secret, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q has no secret", errors.ErrMalformedCredentials, identity)
		}
		if err := put(table, identity, secret); err != nil {
			return nil, err
		}
	}
	if len(table) == 0 {
		return nil, errors.ErrEmptyCredentials
	}
	return table, nil
}

func put(table map[string]string, identity, secret string) error {
	identity, secret = strings.TrimSpace(identity), strings.TrimSpace(secret)
	if identity == "" || secret == "" {
		return fmt.Errorf("%w: empty identity or secret", errors.ErrMalformedCredentials)
	}
	if _, ok := table[identity]; ok {
		return fmt.Errorf("%w: %q", errors.ErrDuplicateIdentity, identity)
	}
	table[identity] = secret
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
