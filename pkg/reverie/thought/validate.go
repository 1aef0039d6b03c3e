package thought

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"golang.org/x/net/html"

	"github.com/cognicore/reverie/pkg/reverie/internalerr"
)

type contentInput struct {
	Content string `validate:"notblank,max=10000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// ValidateContent trims and checks submitted content and strips any markup
// down to its text. It returns ErrEmptyContent or ErrContentTooLong on failure.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if err := validate.Struct(contentInput{Content: content}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
			return "", internalerr.ErrContentTooLong
		}
		return "", internalerr.ErrEmptyContent
	}

	if strings.ContainsRune(content, '<') {
		content = Sanitize(content)
		if content == "" {
			return "", internalerr.ErrEmptyContent
		}
	}
	return content, nil
}

// Sanitize reduces HTML to its text nodes. Script and style bodies are dropped.
func Sanitize(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
