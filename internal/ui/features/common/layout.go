package common

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/remarkql/internal/ui/notifier"
	"github.com/leapstack-labs/remarkql/internal/ui/resources"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Page renders the full HTML document around body.
func Page(data PageData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := NewHTML(w)
		h.Raw("<!doctype html>\n<html lang=\"en\">\n<head>\n")
		h.Raw("<meta charset=\"utf-8\">\n<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		h.Rawf("<title>%s - remarkql</title>\n", data.Title)
		h.Rawf("<link rel=\"stylesheet\" href=\"%s\">\n", resources.StaticPath("style.css"))
		h.Rawf("<script type=\"module\" src=\"%s\"></script>\n", datastarScript)
		h.Raw("</head>\n<body>\n")
		if data.IsDev {
			h.Raw("<div data-init=\"@get('/reload', {retryMaxCount: 1000})\"></div>\n")
		}
		h.Raw("<div data-init=\"@get('/updates')\"></div>\n")
		h.Render(ctx, NoticeBanner(data.Notice))
		h.Raw("<main id=\"ui-content\">\n")
		h.Render(ctx, body)
		h.Raw("</main>\n</body>\n</html>\n")
		return h.Err()
	})
}

// NoticeBanner renders the status notice. An empty notice renders an empty
// placeholder so later patches have a target.
func NoticeBanner(n notifier.Notice) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := NewHTML(w)
		if n.Message == "" {
			h.Raw("<div id=\"notice\"></div>\n")
			return h.Err()
		}
		h.Rawf("<div id=\"notice\" class=\"notice notice-%s\" role=\"status\">%s</div>\n", string(n.Level), n.Message)
		return h.Err()
	})
}
