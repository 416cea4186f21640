// Package asset defines the media asset domain: categories, per-category upload
// policies, request validation, stored object references and the error taxonomy
// shared by the ingestion pipeline and the lifecycle manager.
//
// # Categories and Policies
//
// Every upload belongs to one of a closed set of categories. Each category has
// exactly one Policy describing what may be uploaded and where it is stored:
//
//	reg := asset.DefaultRegistry()
//	p, err := reg.Policy(asset.CategoryIcon)
//	// p.AllowedTypes = [image/jpeg image/png image/svg+xml]
//	// p.MaxSize      = 2 MiB
//	// p.Folder       = "services"
//
// Policies can be overridden from a YAML file at startup:
//
//	f, _ := os.Open("policies.yaml")
//	reg, err := asset.LoadPolicies(f, asset.DefaultRegistry())
//
// The registry hands out copies, so policies cannot be changed after startup.
//
// # Validation
//
// Validate checks request metadata against a policy without any I/O:
//
//	if err := asset.Validate(p, upload); err != nil {
//		var aerr *asset.Error
//		if errors.As(err, &aerr) {
//			// aerr.Kind is one of KindInvalidMimeType, KindPayloadTooLarge, KindEmptyPayload
//		}
//	}
//
// # Object Keys
//
// Stored objects are addressed by a key derived from their URL:
//
//	key, err := asset.ObjectKeyFromURL("https://cdn.example.com/services/01HX.png?v=2")
//	// key == "01HX"
//
// Only the last extension is stripped, so "report.final.pdf" yields "report.final".
//
// # Stores
//
// Store is the capability set a remote content store must offer (Put and Delete).
// Implementations live in pkg/storage.
package asset
