package ticket

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/skip2/go-qrcode"
)

// QRRenderer writes one PNG per ticket into Dir and hands back a
// location relative to the public tickets route.
type QRRenderer struct {
	Dir  string
	Size int
}

func NewQRRenderer(dir string) *QRRenderer {
	return &QRRenderer{Dir: dir, Size: 256}
}

func (r *QRRenderer) Render(ctx context.Context, p Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := p.Encode()
	if err != nil {
		return "", fmt.Errorf("encode ticket %s: %w", p.Ref, err)
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("tickets dir: %w", err)
	}
	name := FileName(p.Ref)
	if err := qrcode.WriteFile(string(data), qrcode.Medium, r.Size, filepath.Join(r.Dir, name)); err != nil {
		return "", fmt.Errorf("render ticket %s: %w", p.Ref, err)
	}
	return path.Join("tickets", name), nil
}

func FileName(ref string) string {
	return ref + ".png"
}
