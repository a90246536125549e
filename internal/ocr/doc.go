// Package ocr recognizes text in images with Tesseract.
//
// Tesseract and the language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// A Recognizer works on the whole image or on a list of rectangles, typically
// the regions found by the text detector. Each rectangle is cropped and
// recognized on its own; the results keep the order of the rectangles and
// their coordinates refer to the original image.
package ocr
