package config

const (
	// MaxNameLength is the maximum length for department, collection and
	// tag names and document titles. Fits in PostgreSQL VARCHAR(255).
	MaxNameLength = 255

	// MaxSlugLength is the maximum length for generated or supplied slugs.
	MaxSlugLength = 100

	// MaxDescriptionLength bounds free-text descriptions.
	MaxDescriptionLength = 2000

	// MaxSectionHeaderLength is the maximum length for section headers.
	MaxSectionHeaderLength = 255

	// MaxSectionBodyLength bounds a single section's markdown body.
	MaxSectionBodyLength = 200_000

	// MaxURLLength is the maximum length for link and tile URLs.
	MaxURLLength = 2048

	// MaxLinkNoteLength bounds resource link notes.
	MaxLinkNoteLength = 1000

	// MaxProfileFieldLength bounds profile name and job title fields.
	MaxProfileFieldLength = 100

	// MaxUploadSize is the largest accepted avatar or section image (5 MiB).
	MaxUploadSize = 5 << 20

	// MinPasswordLength is enforced when users are created.
	MinPasswordLength = 8
)
