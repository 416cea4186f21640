package asset

import "fmt"

const mib = 1 << 20

// Registry maps every category to its policy. It is read-only once built
// and safe for concurrent use.
type Registry struct {
	policies map[Category]Policy
}

// NewRegistry builds a registry from the given policies.
// Every known category must be present exactly once.
func NewRegistry(policies ...Policy) (*Registry, error) {
	r := &Registry{policies: make(map[Category]Policy, len(policies))}
	for _, p := range policies {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.policies[p.Category]; dup {
			return nil, fmt.Errorf("%w: duplicate policy for %s", ErrInvalidPolicy, p.Category)
		}
		r.policies[p.Category] = p.clone()
	}
	for _, c := range Categories() {
		if _, ok := r.policies[c]; !ok {
			return nil, fmt.Errorf("%w: missing policy for %s", ErrInvalidPolicy, c)
		}
	}
	return r, nil
}

// DefaultPolicies returns the production policy table.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			Category:     CategoryIcon,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/svg+xml"},
			MaxSize:      2 * mib,
			Folder:       "services",
			Transform:    &Transform{Width: 500, Height: 500, Mode: TransformModeLimit},
			Media:        MediaImage,
			Field:        "icon",
			URLField:     "iconUrl",
		},
		{
			Category: CategoryUserDocument,
			AllowedTypes: []string{
				"image/jpeg",
				"image/png",
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			},
			MaxSize:  10 * mib,
			Folder:   "user_documents",
			Media:    MediaDocument,
			Field:    "document",
			URLField: "documentUrl",
		},
		{
			Category:     CategoryCourseThumbnail,
			AllowedTypes: []string{"image/jpeg", "image/png"},
			MaxSize:      5 * mib,
			Folder:       "course_thumbnails",
			Transform:    &Transform{Width: 1280, Height: 720, Mode: TransformModeLimit},
			Media:        MediaImage,
			Field:        "thumbnail",
			URLField:     "thumbnailUrl",
		},
		{
			Category:     CategoryCourseVideo,
			AllowedTypes: []string{"video/mp4", "video/quicktime", "video/x-msvideo"},
			MaxSize:      500 * mib,
			Folder:       "course_videos",
			Media:        MediaVideo,
			Field:        "video",
			URLField:     "videoUrl",
		},
	}
}

// DefaultRegistry returns a registry with the production policy table.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultPolicies()...)
	if err != nil {
		panic(fmt.Sprintf("asset: default policies are invalid: %v", err))
	}
	return r
}

// Policy returns the policy for a category.
// ErrUnknownCategory means a value outside the enum reached the registry, which is a
// programming error rather than a runtime condition.
func (r *Registry) Policy(c Category) (Policy, error) {
	p, ok := r.policies[c]
	if !ok {
		return Policy{}, newError(KindUnknownCategory, fmt.Sprintf("unknown asset category %q", c), nil)
	}
	return p.clone(), nil
}

// MustPolicy is like Policy but panics on unknown categories.
func (r *Registry) MustPolicy(c Category) Policy {
	p, err := r.Policy(c)
	if err != nil {
		panic(err)
	}
	return p
}

// ByField returns the policy whose multipart field matches name.
func (r *Registry) ByField(name string) (Policy, bool) {
	for _, c := range Categories() {
		if p := r.policies[c]; p.Field == name {
			return p.clone(), true
		}
	}
	return Policy{}, false
}

// Policies returns copies of all policies in category order.
func (r *Registry) Policies() []Policy {
	out := make([]Policy, 0, len(r.policies))
	for _, c := range Categories() {
		out = append(out, r.policies[c].clone())
	}
	return out
}
