package notes

import (
	"context"
	"fmt"
	"strings"
)

// TimestampLayout is how note dates are shown to the user.
const TimestampLayout = "2006-01-02 15:04"

// FormatList renders notes as the "listar ideas" reply body lines.
func FormatList(ns []Note) string {
	lines := make([]string, 0, len(ns))
	for _, n := range ns {
		lines = append(lines, fmt.Sprintf("• %s  (%s)", n.Text, n.CreatedAt.Format(TimestampLayout)))
	}
	return strings.Join(lines, "\n")
}

// Digest renders the daily summary of the newest count notes.
func Digest(ctx context.Context, s Store, count int) (string, error) {
	ns, err := s.List(ctx, count)
	if err != nil {
		return "", err
	}
	if len(ns) == 0 {
		return "No tienes ideas registradas hoy.", nil
	}
	var b strings.Builder
	b.WriteString("Resumen de tus últimas ideas:")
	for _, n := range ns {
		b.WriteString("\n- ")
		b.WriteString(n.Text)
	}
	return b.String(), nil
}
