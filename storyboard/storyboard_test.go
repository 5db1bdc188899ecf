package storyboard

import (
	"strings"
	"testing"
)

const events = `osu file format v14

[Events]
//Background and Video events
0,0,"bg.jpg",0,0
Video,500,"intro.mp4"
1,0,"still.png"
//Storyboard Layer 0 (Background)
Sprite,Background,Centre,"sb\star.png",320,240
 F,0,1000,2000,0,1
 S,0,1000,2000,1,2
Animation,Foreground,TopLeft,"sb/anim.png",0,0,4,100,LoopForever
Sample,3000,3,"hit.wav",70
2,100,200

[TimingPoints]
0,500,4,2,0,100,1,0
`

func TestDecode(t *testing.T) {
	sb, err := Decode(strings.NewReader(events), nil)
	if err != nil {
		t.Fatal(err)
	}

	video := sb.Layer(LayerVideo).Elements
	if len(video) != 1 || video[0].Path != "intro.mp4" || video[0].Time != 500 {
		t.Fatalf("video layer = %+v", video)
	}

	bg := sb.Layer(LayerBackground).Elements
	if len(bg) != 1 {
		t.Fatalf("background layer has %d elements", len(bg))
	}
	if bg[0].Path != "sb/star.png" || len(bg[0].Commands) != 2 {
		t.Errorf("sprite = %+v", bg[0])
	}

	// layer 3 of the sample line is Foreground
	fg := sb.Layer(LayerForeground).Elements
	if len(fg) != 2 {
		t.Fatalf("foreground layer has %d elements", len(fg))
	}
	if fg[0].Kind != ElementAnimation || fg[0].Frames != 4 || fg[0].Loop != "LoopForever" {
		t.Errorf("animation = %+v", fg[0])
	}
	if fg[1].Kind != ElementSample || fg[1].Volume != 70 || fg[1].Time != 3000 {
		t.Errorf("sample = %+v", fg[1])
	}

	if got := sb.ElementCount(); got != 4 {
		t.Errorf("elements = %d, want 4", got)
	}
}

func TestDecodeRejectsBadLayer(t *testing.T) {
	_, err := Decode(strings.NewReader("Sprite,Nowhere,Centre,\"a.png\",0,0\n"), nil)
	if err == nil {
		t.Fatal("expected error")
	}
}
