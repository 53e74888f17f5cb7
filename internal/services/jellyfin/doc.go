// Package jellyfin triggers media server library scans after the organizer
// places a new episode. The integration is optional; a disabled or
// unconfigured server yields a no-op service.
package jellyfin
