package asset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectKeyFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr error
	}{
		{"store url", "https://store/example/services/abc123.png", "abc123", nil},
		{"query string", "https://cdn.example.com/services/abc123.png?v=3&w=100", "abc123", nil},
		{"fragment", "https://cdn.example.com/services/abc123.png#preview", "abc123", nil},
		{"multiple dots", "https://cdn.example.com/user_documents/report.final.v2.pdf", "report.final.v2", nil},
		{"no extension", "https://cdn.example.com/services/abc123", "abc123", nil},
		{"escaped segment", "https://cdn.example.com/services/my%20icon.svg", "my icon", nil},
		{"relative path", "services/01HXYZ.mp4", "01HXYZ", nil},
		{"surrounding spaces", "  https://cdn.example.com/a/b.png  ", "b", nil},
		{"empty", "", "", ErrNoObject},
		{"placeholder", "http", "", ErrNoObject},
		{"trailing slash", "https://cdn.example.com/services/", "", ErrInvalidURL},
		{"host only", "https://cdn.example.com", "", ErrInvalidURL},
		{"dotfile", "https://cdn.example.com/services/.png", "", ErrInvalidURL},
		{"unparseable", "https://cdn.example.com/%zz", "", ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ObjectKeyFromURL(tt.url)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestObjectFromURL(t *testing.T) {
	t.Parallel()

	obj, err := ObjectFromURL(CategoryCourseVideo, "https://cdn.example.com/course_videos/01HX.mp4")
	require.NoError(t, err)
	require.Equal(t, StoredObject{
		URL:      "https://cdn.example.com/course_videos/01HX.mp4",
		Key:      "01HX",
		Category: CategoryCourseVideo,
	}, obj)

	_, err = ObjectFromURL(CategoryIcon, "")
	require.ErrorIs(t, err, ErrNoObject)
}

func TestObjectPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "services/abc.png", ObjectPath("services", "abc.png"))
	require.Equal(t, "a/b/abc", ObjectPath("/a/b/", "abc"))
}
