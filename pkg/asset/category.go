package asset

// Category is a named class of uploadable media with its own policy.
type Category string

// Supported categories.
const (
	CategoryIcon            Category = "icon"
	CategoryUserDocument    Category = "user_document"
	CategoryCourseThumbnail Category = "course_thumbnail"
	CategoryCourseVideo     Category = "course_video"
)

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryIcon,
		CategoryUserDocument,
		CategoryCourseThumbnail,
		CategoryCourseVideo,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryIcon, CategoryUserDocument, CategoryCourseThumbnail, CategoryCourseVideo:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// Media describes what kind of payload a category carries.
// Stores use it to pick the right processing pipeline (e.g. image vs video).
type Media string

// Media kinds.
const (
	MediaImage    Media = "image"
	MediaDocument Media = "document"
	MediaVideo    Media = "video"
)
