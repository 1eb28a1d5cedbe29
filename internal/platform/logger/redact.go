package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
)

const redacted = "[REDACTED]"

var redactKeys = []string{"token", "authorization", "password", "secret", "cookie", "api_key", "apikey"}

type redactConfig struct {
	enabled bool
	salt    string
}

var (
	redactOnce sync.Once
	redactCfg  redactConfig
)

// LOG_REDACTION_ENABLED=false turns redaction off. LOG_HASH_SALT salts
// hashed values.
func loadRedactConfig() redactConfig {
	redactOnce.Do(func() {
		redactCfg.enabled = true
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			redactCfg.enabled = false
		}
		redactCfg.salt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return redactCfg
}

func sanitize(kv []interface{}) []interface{} {
	cfg := loadRedactConfig()
	if len(kv) == 0 || !cfg.enabled {
		return kv
	}
	return sanitizeWith(cfg, kv)
}

func sanitizeWith(cfg redactConfig, kv []interface{}) []interface{} {
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := stringify(kv[i])
		out = append(out, key, cfg.value(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func (cfg redactConfig) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case secretKey(key):
		return redacted
	case strings.Contains(key, "session_id"):
		// session ids double as bearer handles for the SSE stream
		return cfg.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = cfg.value(strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return out
	case string:
		if bearerLike(v) {
			return redacted
		}
	}
	return val
}

func secretKey(key string) bool {
	for _, needle := range redactKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

func (cfg redactConfig) hash(val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(cfg.salt))
	h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func bearerLike(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(strings.ToLower(s), "bearer ") || strings.HasPrefix(s, "sk-")
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
