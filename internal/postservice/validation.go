package postservice

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sushihentaime/blogdesk/internal/common"
)

// PublishedOn is the form value a checked "published" checkbox submits.
const PublishedOn = "on"

const maxTitleLength = 255

// PostForm is the normalized input of the create and edit actions.
type PostForm struct {
	ID        int
	Title     string
	Content   string
	Published bool
}

// ParsePostForm trims and validates a submitted post. When needID is set the
// form must also carry a positive integer id.
func ParsePostForm(values url.Values, needID bool) (*PostForm, error) {
	v := common.NewValidator()

	form := &PostForm{
		Title:     strings.TrimSpace(values.Get("title")),
		Content:   strings.TrimSpace(sanitizeMarkdown(values.Get("content"))),
		Published: values.Get("published") == PublishedOn,
	}

	if needID {
		form.ID = parseID(v, values.Get("id"))
	}
	validateTitle(v, form.Title)
	validateContent(v, form.Content)

	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return form, nil
}

// ParseIDForm validates a form that only identifies a post.
func ParseIDForm(values url.Values) (int, error) {
	v := common.NewValidator()
	id := parseID(v, values.Get("id"))
	if !v.Valid() {
		return 0, v.ValidationError()
	}

	return id, nil
}

func parseID(v *common.Validator, raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		v.AddError("id", "must be provided")
		return 0
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		v.AddError("id", "must be an integer")
		return 0
	}
	validateInt(v, id, "id")

	return id
}

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 0, maxTitleLength), "title", "must not be more than 255 characters long")
}

func validateContent(v *common.Validator, content string) {
	v.Check(content != "", "content", "must be provided")
}

func validateInt(v *common.Validator, num int, name string) {
	v.Check(num > 0, name, "must be greater than zero")
}
