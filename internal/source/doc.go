// Package source acquires still images for detection rounds.
//
// Camera grabs single frames from a V4L2 device through ffmpeg, PrepareImage
// and LoadImage normalize uploaded files (EXIF orientation, bounded size,
// JPEG re-encode), and Inbox watches a drop directory for new images. Every
// acquisition failure is tagged services.ErrSourceUnavailable.
package source
