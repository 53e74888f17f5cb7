// Package organizer finalizes downloaded episodes by moving the staged file
// into the library tree and triggering a media server rescan.
//
// Targets follow the Series/Season NN/"Series - SxxEyy - Title.ext" layout
// with collision-safe suffixes. Error wrapping and progress updates follow
// the same conventions as the other stages so the workflow manager can react
// uniformly.
package organizer
