package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// starterConfig is the .umbra.yml a fresh project starts from. It
// registers the two example fragments Scaffold writes alongside it.
const starterConfig = `# umbra configuration file
server:
  port: 8080
  host: localhost
  title: umbra dev
  allowed_origins:
    - http://localhost:8080

fragments:
  dir: ./fragments
  entries:
    - name: greeting
      tag: x-greeting
      template: greeting.html
      mode: open
    - name: cart
      tag: x-cart
      template: cart.html
      selector: ".cart-root"
      mode: open

dev:
  reload: true
  error_overlay: true
  debounce_ms: 100

log:
  level: info
  format: text
`

const greetingTemplate = `<style>
  .greeting { font-family: system-ui, sans-serif; color: #222; }
  .greeting strong { color: #6b46c1; }
</style>
<div class="greeting">
  Hello from <strong>umbra</strong>!
  <slot></slot>
</div>
`

const cartTemplate = `<style>
  .cart-root { display: inline-flex; align-items: center; gap: 0.5rem; }
  .cart-count { background: #6b46c1; color: white; border-radius: 1rem; padding: 0 0.5rem; }
</style>
<div class="cart-root">
  <span>Cart</span>
  <span class="cart-count">0</span>
</div>
`

// Scaffold writes a starter project into dir: a .umbra.yml, the
// fragments directory, and the example fragment templates it
// registers. Existing files are left alone unless force is set. It
// returns the paths it wrote, relative to dir.
func Scaffold(dir string, force bool) ([]string, error) {
	files := []struct {
		rel     string
		content string
	}{
		{".umbra.yml", starterConfig},
		{filepath.Join("fragments", "greeting.html"), greetingTemplate},
		{filepath.Join("fragments", "cart.html"), cartTemplate},
	}

	var created []string
	for _, f := range files {
		path := filepath.Join(dir, f.rel)
		if !force {
			if _, err := os.Stat(path); err == nil {
				continue
			}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return created, fmt.Errorf("failed to create directory for %s: %w", f.rel, err)
		}
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", f.rel, err)
		}
		created = append(created, f.rel)
	}
	return created, nil
}
