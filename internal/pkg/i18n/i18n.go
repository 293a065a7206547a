package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLocale = "en"
	catalogFile   = "notifications.yaml"
)

type Translations map[string]string

//go:embed locales
var builtin embed.FS

var (
	locales = make(map[string]Translations)
	mu      sync.RWMutex
)

func init() {
	if err := loadFS(builtin, "locales"); err != nil {
		panic(fmt.Sprintf("i18n: load builtin catalogue: %v", err))
	}
}

// LoadTranslations merges catalogues found under localePath/<locale>/notifications.yaml
// over the built-in ones. Keys missing from a file keep their built-in text.
func LoadTranslations(localePath string) error {
	return loadFS(os.DirFS(localePath), ".")
}

func loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		locale := entry.Name()
		filePath := path.Join(root, locale, catalogFile)

		data, err := fs.ReadFile(fsys, filePath)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}

		var catalog struct {
			Notifications Translations `yaml:"NOTIFICATIONS"`
		}
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.FromSlash(filePath), err)
		}

		merged, ok := locales[locale]
		if !ok {
			merged = make(Translations, len(catalog.Notifications))
			locales[locale] = merged
		}
		for key, val := range catalog.Notifications {
			merged[key] = val
		}
	}

	return nil
}

func Translate(locale, key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if trans, ok := locales[locale]; ok {
		if val, ok := trans[key]; ok {
			return val
		}
	}

	if locale != DefaultLocale {
		if trans, ok := locales[DefaultLocale]; ok {
			if val, ok := trans[key]; ok {
				return val
			}
		}
	}

	return key
}

// Format translates key and substitutes {name} placeholders from vars.
func Format(locale, key string, vars map[string]string) string {
	text := Translate(locale, key)
	if len(vars) == 0 {
		return text
	}

	pairs := make([]string, 0, len(vars)*2)
	for name, val := range vars {
		pairs = append(pairs, "{"+name+"}", val)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
