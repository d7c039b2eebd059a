package publish

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Editor fields that must be present on post-new.php.
var requiredEditorFields = []string{"_wpnonce", "user_ID", "post_ID"}

// Hidden editor fields forwarded to post.php. Everything else the editor
// carries is dropped.
var essentialEditorFields = []string{"_wpnonce", "_wp_http_referer", "user_ID", "post_ID", "post_type"}

const editAction = "editpost"

// hiddenFields collects hidden inputs with both a name and a value.
func hiddenFields(form *goquery.Selection) map[string]string {
	fields := make(map[string]string)
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		name, _ := input.Attr("name")
		value, _ := input.Attr("value")
		if name != "" && value != "" {
			fields[name] = value
		}
	})
	return fields
}

// loginFormFields returns the hidden fields of form#loginform. ok is false
// when the page has no login form.
func loginFormFields(doc *goquery.Document) (map[string]string, bool) {
	form := doc.Find("form#loginform").First()
	if form.Length() == 0 {
		return nil, false
	}
	return hiddenFields(form), true
}

// editorFields returns the hidden fields of the first form on the editor page.
func editorFields(doc *goquery.Document) map[string]string {
	form := doc.Find("form").First()
	if form.Length() == 0 {
		return map[string]string{}
	}
	return hiddenFields(form)
}

// missingEditorField returns the first required field absent from fields.
func missingEditorField(fields map[string]string) string {
	for _, name := range requiredEditorFields {
		if _, ok := fields[name]; !ok {
			return name
		}
	}
	return ""
}

// categoryID finds the post_category[] checkbox whose label matches label.
func categoryID(doc *goquery.Document, label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	var id string
	doc.Find(`input[type="checkbox"][name="post_category[]"]`).EachWithBreak(func(_ int, box *goquery.Selection) bool {
		text := strings.TrimSpace(box.Parent().Text())
		if boxID, ok := box.Attr("id"); ok && text == "" {
			text = strings.TrimSpace(doc.Find(`label[for="` + boxID + `"]`).Text())
		}
		if text == label {
			id, _ = box.Attr("value")
			return false
		}
		return true
	})
	return id, id != ""
}

// errorNotice returns the text of the first div.error element.
func errorNotice(doc *goquery.Document) (string, bool) {
	notice := doc.Find("div.error").First()
	if notice.Length() == 0 {
		return "", false
	}
	return strings.Join(strings.Fields(notice.Text()), " "), true
}
