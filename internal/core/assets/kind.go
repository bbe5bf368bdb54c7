package assets

import (
	"fmt"
	"strings"
)

// Kind is the content type an asset path is loaded as.
type Kind uint8

const (
	KindImage Kind = iota + 1
	KindScene
	KindAnimationClip
	KindMesh
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindScene:
		return "scene"
	case KindAnimationClip:
		return "animation_clip"
	case KindMesh:
		return "mesh"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "texture":
		return KindImage, nil
	case "scene":
		return KindScene, nil
	case "animation", "animation_clip", "clip":
		return KindAnimationClip, nil
	case "mesh":
		return KindMesh, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// UnmarshalText lets config files spell kinds as strings.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
