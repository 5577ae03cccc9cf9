// Package render draws reel frames and encodes them into videos.
//
// A frame is a 1080x1920 canvas: a background (black, or the stretched logo
// in logo mode), the circular profile picture or a logo watermark, an
// optional content thumbnail and up to three lines of centred text. Frames
// are drawn with gg and imaging.
//
// Encoding walks a chain of Encoders. FFmpegEncoder shells out to ffmpeg and
// is re-probed before every run; H264Encoder writes an H.264 MP4 in pure Go
// when ffmpeg is missing or fails.
package render
