package model

// ImageState disambiguates "no edit happened" from "user cleared the image".
type ImageState string

const (
	ImageUnchanged ImageState = "UNCHANGED"
	ImageReplace   ImageState = "REPLACE"
	ImageClear     ImageState = "CLEAR"
)

// Image is the tri-state image slot carried by entries, choices and grid
// rows. URL is the last persisted location; Name and Data are only set
// while State is REPLACE, holding the freshly selected file.
type Image struct {
	URL   string     `json:"url,omitempty"`
	State ImageState `json:"state,omitempty"`
	Name  string     `json:"name,omitempty"`
	Data  []byte     `json:"data,omitempty"`
}

func ExistingImage(url string) Image {
	return Image{URL: url, State: ImageUnchanged}
}

func ReplaceImage(name string, data []byte) Image {
	return Image{State: ImageReplace, Name: name, Data: data}
}

func ClearImage() Image {
	return Image{State: ImageClear}
}

// Dirty reports whether the slot carries a pending edit. A freshly attached
// file always counts, as does an explicit clear.
func (im Image) Dirty() bool {
	return im.State == ImageReplace || im.State == ImageClear
}
