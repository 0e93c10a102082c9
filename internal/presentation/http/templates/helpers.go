package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Text writes s with HTML escaping.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

// MultilineText writes s escaped, turning line breaks into <br>.
func MultilineText(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for idx, line := range strings.Split(s, "\n") {
			if idx > 0 {
				if _, err := io.WriteString(w, "<br>"); err != nil {
					return err
				}
			}
			if err := Text(line).Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// Element wraps children in <tag class="...">. Tag and class are trusted constants.
func Element(tag, class string, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		open := "<" + tag
		if class != "" {
			open += ` class="` + templ.EscapeString(class) + `"`
		}
		if _, err := io.WriteString(w, open+">"); err != nil {
			return err
		}
		if err := Group(children...).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</"+tag+">")
		return err
	})
}

// Group renders components in order.
func Group(children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, child := range children {
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func staticHTML(html string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html)
		return err
	})
}
