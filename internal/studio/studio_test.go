package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/santiagoirala777/Nano-Banana-Editor/internal/gemini"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/history"
	"github.com/santiagoirala777/Nano-Banana-Editor/internal/mask"
)

// fakeGenerator is a scripted backend. Each method returns result/err and
// records the request it received.
type fakeGenerator struct {
	result []byte
	err    error

	lastGenerate   gemini.GenerateRequest
	lastEdit       gemini.EditRequest
	lastEnhance    gemini.EnhanceRequest
	lastBackground gemini.BackgroundRequest
	lastOutpaint   gemini.OutpaintRequest

	// When set, Generate signals started and blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, req gemini.GenerateRequest) ([]byte, error) {
	f.lastGenerate = req
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeGenerator) Edit(ctx context.Context, req gemini.EditRequest) ([]byte, error) {
	f.lastEdit = req
	return f.result, f.err
}

func (f *fakeGenerator) Enhance(ctx context.Context, req gemini.EnhanceRequest) ([]byte, error) {
	f.lastEnhance = req
	return f.result, f.err
}

func (f *fakeGenerator) ReplaceBackground(ctx context.Context, req gemini.BackgroundRequest) ([]byte, error) {
	f.lastBackground = req
	return f.result, f.err
}

func (f *fakeGenerator) Outpaint(ctx context.Context, req gemini.OutpaintRequest) ([]byte, error) {
	f.lastOutpaint = req
	return f.result, f.err
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture PNG: %v", err)
	}
	return buf.Bytes()
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding fixture JPEG: %v", err)
	}
	return buf.Bytes()
}

func newTestStudio(t *testing.T, fake *fakeGenerator) *Studio {
	t.Helper()
	return New(fake, 8, nil)
}

func TestGenerateRequiresPromptOrReferences(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{result: makePNG(t, 4, 4)})

	_, err := st.Generate(context.Background(), GenerateParams{Prompt: "   "})
	if !errors.Is(err, ErrInputRequired) {
		t.Errorf("Generate() = %v, want ErrInputRequired", err)
	}
	if st.Active() != nil {
		t.Error("Active() != nil after rejected submission")
	}
}

func TestGenerateCommitsVersion(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 8, 6)}
	st := newTestStudio(t, fake)

	v, err := st.Generate(context.Background(), GenerateParams{Prompt: "a banana"})
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}

	if v.Kind != history.KindGenerated {
		t.Errorf("Kind = %q, want GENERATED", v.Kind)
	}
	if v.Prompt != "a banana" {
		t.Errorf("Prompt = %q, want %q", v.Prompt, "a banana")
	}
	if v.Seed == nil {
		t.Error("Seed = nil, want synthesized seed")
	}
	if st.Active() != v {
		t.Error("Active() != generated version")
	}
	if got := st.Gallery(""); len(got) != 1 {
		t.Errorf("gallery has %d images, want 1", len(got))
	}

	m := st.Mask()
	if !m.Initialized || m.Width != 8 || m.Height != 6 {
		t.Errorf("mask = %+v, want initialized 8x6", m)
	}
	if view := st.View(); view.Scale != 1 || view.OffsetX != 0 {
		t.Errorf("viewport = %+v, want identity", view)
	}
}

func TestGenerateNegativePromptRecorded(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)

	v, err := st.Generate(context.Background(), GenerateParams{Prompt: "cat", NegativePrompt: "blur"})
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if fake.lastGenerate.NegativePrompt != "blur" {
		t.Errorf("backend negative prompt = %q, want blur", fake.lastGenerate.NegativePrompt)
	}
	want := "cat | Negative: blur"
	if v.Prompt != want {
		t.Errorf("Prompt = %q, want %q", v.Prompt, want)
	}
}

func TestGenerateExplicitSeedEchoed(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)
	seed := int64(1234)

	v, err := st.Generate(context.Background(), GenerateParams{Prompt: "x", Seed: &seed})
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if v.Seed == nil || *v.Seed != 1234 {
		t.Errorf("Seed = %v, want 1234", v.Seed)
	}
	if got, _ := st.Seed(); got == nil || *got != 1234 {
		t.Errorf("Seed() = %v, want 1234", got)
	}
}

func TestGenerateSeedLockReusesSeed(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)

	if _, err := st.Generate(context.Background(), GenerateParams{Prompt: "x"}); err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	first := *fake.lastGenerate.Seed

	st.LockSeed(true)
	if _, err := st.Generate(context.Background(), GenerateParams{Prompt: "y"}); err != nil {
		t.Fatalf("second Generate() = %v", err)
	}
	if got := *fake.lastGenerate.Seed; got != first {
		t.Errorf("locked seed = %d, want %d", got, first)
	}
}

func TestToolValidation(t *testing.T) {
	ctx := context.Background()
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}

	tests := []struct {
		name    string
		call    func(st *Studio) error
		wantErr error
	}{
		{"edit without active image", func(st *Studio) error {
			_, err := st.Edit(ctx, EditParams{Instruction: "x", Global: true})
			return err
		}, ErrNoActiveImage},
		{"enhance without active image", func(st *Studio) error {
			_, err := st.Enhance(ctx, gemini.EnhanceX2)
			return err
		}, ErrNoActiveImage},
		{"background without active image", func(st *Studio) error {
			_, err := st.ReplaceBackground(ctx, BackgroundParams{Prompt: "beach"})
			return err
		}, ErrNoActiveImage},
		{"outpaint without active image", func(st *Studio) error {
			_, err := st.Outpaint(ctx, OutpaintParams{Directions: []gemini.Direction{gemini.DirUp}})
			return err
		}, ErrNoActiveImage},
		{"edit without instruction", func(st *Studio) error {
			mustUpload(st, fake.result)
			_, err := st.Edit(ctx, EditParams{Instruction: "  ", Global: true})
			return err
		}, ErrInstructionRequired},
		{"masked edit without mask", func(st *Studio) error {
			mustUpload(st, fake.result)
			_, err := st.Edit(ctx, EditParams{Instruction: "remove hat"})
			return err
		}, ErrMaskRequired},
		{"enhance unknown variant", func(st *Studio) error {
			mustUpload(st, fake.result)
			_, err := st.Enhance(ctx, gemini.EnhanceVariant("x8"))
			return err
		}, ErrInvalidVariant},
		{"background without prompt or image", func(st *Studio) error {
			mustUpload(st, fake.result)
			_, err := st.ReplaceBackground(ctx, BackgroundParams{})
			return err
		}, ErrBackgroundRequired},
		{"outpaint without directions", func(st *Studio) error {
			mustUpload(st, fake.result)
			_, err := st.Outpaint(ctx, OutpaintParams{})
			return err
		}, ErrDirectionRequired},
		{"outpaint unknown direction", func(st *Studio) error {
			mustUpload(st, fake.result)
			_, err := st.Outpaint(ctx, OutpaintParams{Directions: []gemini.Direction{"sideways"}})
			return err
		}, ErrInvalidDirection},
		{"outpaint custom size without dimensions", func(st *Studio) error {
			mustUpload(st, fake.result)
			_, err := st.Outpaint(ctx, OutpaintParams{
				Directions: []gemini.Direction{gemini.DirUp},
				Sizing:     gemini.Sizing{AspectRatio: gemini.AspectCustom},
			})
			return err
		}, ErrInvalidCustomSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStudio(t, fake)
			err := tt.call(st)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Errorf("IsValidationError(%v) = false", err)
			}
		})
	}
}

func mustUpload(st *Studio, data []byte) {
	if _, err := st.Upload(data); err != nil {
		panic(err)
	}
}

func TestMaskedEditSendsMaskAndResetsIt(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)
	mustUpload(st, makePNG(t, 20, 20))

	if err := st.PaintStroke([]mask.Point{{X: 10, Y: 10}}); err != nil {
		t.Fatalf("PaintStroke() = %v", err)
	}
	if !st.Mask().Dirty {
		t.Fatal("mask not dirty after stroke")
	}

	v, err := st.Edit(context.Background(), EditParams{Instruction: "remove hat"})
	if err != nil {
		t.Fatalf("Edit() = %v", err)
	}

	if len(fake.lastEdit.Mask) == 0 {
		t.Error("backend received no mask for masked edit")
	}
	if fake.lastEdit.Global {
		t.Error("backend received Global = true for masked edit")
	}
	if v.Kind != history.KindEdited {
		t.Errorf("Kind = %q, want EDITED", v.Kind)
	}

	// A fresh mask layer sized to the new active image.
	m := st.Mask()
	if m.Dirty || m.CanUndo {
		t.Errorf("mask = %+v after edit, want pristine", m)
	}
	if m.Width != 4 || m.Height != 4 {
		t.Errorf("mask = %dx%d, want 4x4 from the edit result", m.Width, m.Height)
	}
}

func TestGlobalEditSkipsMask(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)
	mustUpload(st, makePNG(t, 20, 20))

	if _, err := st.Edit(context.Background(), EditParams{Instruction: "warmer light", Global: true}); err != nil {
		t.Fatalf("Edit() = %v", err)
	}
	if len(fake.lastEdit.Mask) != 0 {
		t.Error("backend received a mask for a global edit")
	}
	if !fake.lastEdit.Global {
		t.Error("backend received Global = false for global edit")
	}
}

func TestBackendFailureLeavesStateUntouched(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)
	mustUpload(st, makePNG(t, 20, 20))
	if err := st.PaintStroke([]mask.Point{{X: 5, Y: 5}, {X: 15, Y: 15}}); err != nil {
		t.Fatalf("PaintStroke() = %v", err)
	}

	before := snapshotState(t, st)

	fake.err = errors.New("backend exploded")
	if _, err := st.Edit(context.Background(), EditParams{Instruction: "x"}); err == nil {
		t.Fatal("Edit() = nil error, want failure")
	}

	after := snapshotState(t, st)
	if before.activeID != after.activeID {
		t.Errorf("active changed %q -> %q across a failure", before.activeID, after.activeID)
	}
	if before.galleryLen != after.galleryLen {
		t.Errorf("gallery len changed %d -> %d across a failure", before.galleryLen, after.galleryLen)
	}
	if before.playhead != after.playhead {
		t.Errorf("playhead changed %d -> %d across a failure", before.playhead, after.playhead)
	}
	if !bytes.Equal(before.maskPNG, after.maskPNG) {
		t.Error("mask pixels changed across a failure")
	}
	if busy, _ := st.Status(); busy {
		t.Error("busy flag stuck after failure")
	}
}

type stateSnapshot struct {
	activeID   string
	galleryLen int
	playhead   int
	maskPNG    []byte
}

func snapshotState(t *testing.T, st *Studio) stateSnapshot {
	t.Helper()
	maskPNG, err := st.MaskPNG()
	if err != nil {
		t.Fatalf("MaskPNG() = %v", err)
	}
	return stateSnapshot{
		activeID:   st.Active().ID,
		galleryLen: len(st.Gallery("")),
		playhead:   st.History().Playhead,
		maskPNG:    maskPNG,
	}
}

func TestUndecodableResultIsRejected(t *testing.T) {
	fake := &fakeGenerator{result: []byte("not a png")}
	st := newTestStudio(t, fake)

	_, err := st.Generate(context.Background(), GenerateParams{Prompt: "x"})
	if !errors.Is(err, ErrBadImage) {
		t.Fatalf("Generate() = %v, want ErrBadImage", err)
	}
	if st.Active() != nil || len(st.Gallery("")) != 0 {
		t.Error("undecodable result leaked into session state")
	}
}

func TestOversizedResultLeavesStateUntouched(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)
	mustUpload(st, makePNG(t, 20, 20))

	before := snapshotState(t, st)

	fake.result = makePNG(t, mask.MaxDimension+1, 1)
	_, err := st.Edit(context.Background(), EditParams{Instruction: "x", Global: true})
	if !errors.Is(err, ErrBadImage) {
		t.Fatalf("Edit() = %v, want ErrBadImage", err)
	}

	after := snapshotState(t, st)
	if before.activeID != after.activeID {
		t.Errorf("active changed %q -> %q across a failure", before.activeID, after.activeID)
	}
	if before.galleryLen != after.galleryLen {
		t.Errorf("gallery len changed %d -> %d across a failure", before.galleryLen, after.galleryLen)
	}
	if before.playhead != after.playhead {
		t.Errorf("playhead changed %d -> %d across a failure", before.playhead, after.playhead)
	}
	if !bytes.Equal(before.maskPNG, after.maskPNG) {
		t.Error("mask pixels changed across a failure")
	}
}

func TestBusyRejectsConcurrentSubmission(t *testing.T) {
	fake := &fakeGenerator{
		result:  makePNG(t, 4, 4),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	st := newTestStudio(t, fake)

	done := make(chan error, 1)
	go func() {
		_, err := st.Generate(context.Background(), GenerateParams{Prompt: "slow"})
		done <- err
	}()
	<-fake.started

	if busy, message := st.Status(); !busy {
		t.Error("Status() busy = false while request in flight")
	} else if message == "" {
		t.Error("Status() message empty while busy")
	}

	if _, err := st.Generate(context.Background(), GenerateParams{Prompt: "second"}); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Generate() = %v, want ErrBusy", err)
	}

	close(fake.release)
	if err := <-done; err != nil {
		t.Fatalf("first Generate() = %v", err)
	}
	if busy, _ := st.Status(); busy {
		t.Error("busy flag stuck after completion")
	}
}

func TestUploadConvertsToPNG(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})

	v, err := st.Upload(makeJPEG(t, 10, 10))
	if err != nil {
		t.Fatalf("Upload() = %v", err)
	}
	if v.Kind != history.KindUploaded {
		t.Errorf("Kind = %q, want UPLOADED", v.Kind)
	}
	if _, err := png.Decode(bytes.NewReader(v.PNG)); err != nil {
		t.Errorf("uploaded JPEG not stored as PNG: %v", err)
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})
	if _, err := st.Upload([]byte("garbage")); !errors.Is(err, ErrBadImage) {
		t.Errorf("Upload() = %v, want ErrBadImage", err)
	}
}

func TestHistoryUndoActivatesPreviousVersion(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})
	mustUpload(st, makePNG(t, 10, 10))
	mustUpload(st, makePNG(t, 30, 20))

	if !st.Undo() {
		t.Fatal("Undo() = false")
	}
	m := st.Mask()
	if m.Width != 10 || m.Height != 10 {
		t.Errorf("mask = %dx%d after undo, want 10x10", m.Width, m.Height)
	}

	if !st.Redo() {
		t.Fatal("Redo() = false")
	}
	m = st.Mask()
	if m.Width != 30 || m.Height != 20 {
		t.Errorf("mask = %dx%d after redo, want 30x20", m.Width, m.Height)
	}
}

func TestJumpToUnknownID(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})
	if err := st.JumpTo("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("JumpTo() = %v, want ErrNotFound", err)
	}
}

func TestDeleteActivePromotesNewestRemaining(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})
	a, _ := st.Upload(makePNG(t, 10, 10))
	b, _ := st.Upload(makePNG(t, 30, 20))

	if removed := st.DeleteImages([]string{b.ID}); removed != 1 {
		t.Fatalf("DeleteImages() = %d, want 1", removed)
	}
	if st.Active() == nil || st.Active().ID != a.ID {
		t.Errorf("Active() = %v, want promoted %q", st.Active(), a.ID)
	}
	m := st.Mask()
	if m.Width != 10 || m.Height != 10 {
		t.Errorf("mask = %dx%d after promotion, want 10x10", m.Width, m.Height)
	}
}

func TestDeleteLastImageClearsCanvas(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})
	a, _ := st.Upload(makePNG(t, 10, 10))

	st.DeleteImages([]string{a.ID})

	if st.Active() != nil {
		t.Error("Active() != nil after deleting the only image")
	}
	if st.Mask().Initialized {
		t.Error("mask still initialized after deleting the only image")
	}
}

func TestDeleteInactiveImageKeepsActive(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})
	a, _ := st.Upload(makePNG(t, 10, 10))
	b, _ := st.Upload(makePNG(t, 30, 20))

	st.DeleteImages([]string{a.ID})

	if st.Active() == nil || st.Active().ID != b.ID {
		t.Error("deleting an inactive image changed the active image")
	}
}

func TestClearCanvasKeepsGallery(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})
	mustUpload(st, makePNG(t, 10, 10))

	st.ClearCanvas()

	if st.Active() != nil {
		t.Error("Active() != nil after ClearCanvas")
	}
	if len(st.Gallery("")) != 1 {
		t.Error("ClearCanvas removed gallery images")
	}
	if st.History().Playhead != -1 {
		t.Errorf("playhead = %d after ClearCanvas, want -1", st.History().Playhead)
	}
}

func TestReferencesFlowIntoGenerate(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)

	refPNG := makePNG(t, 6, 6)
	if err := st.SetReferenceImage(SectionStyle, refPNG, "image/png"); err != nil {
		t.Fatalf("SetReferenceImage() = %v", err)
	}
	if err := st.SetReferencePrompt(SectionStyle, "watercolor"); err != nil {
		t.Fatalf("SetReferencePrompt() = %v", err)
	}
	if err := st.SetReferenceImage(SectionSubject, refPNG, "image/png"); err != nil {
		t.Fatalf("SetReferenceImage() = %v", err)
	}

	// References alone are a valid generation input.
	v, err := st.Generate(context.Background(), GenerateParams{})
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}

	refs := fake.lastGenerate.References
	if len(refs) != 2 {
		t.Fatalf("backend received %d references, want 2", len(refs))
	}
	// Display order: Subject before Style.
	if refs[0].Section != "Subject" || refs[1].Section != "Style" {
		t.Errorf("reference order = [%s, %s], want [Subject, Style]", refs[0].Section, refs[1].Section)
	}
	if refs[1].Prompt != "watercolor" {
		t.Errorf("style prompt = %q, want watercolor", refs[1].Prompt)
	}
	if len(v.References) != 2 {
		t.Errorf("version recorded %d reference snapshots, want 2", len(v.References))
	}
	if v.Prompt != "Generated from image references" {
		t.Errorf("Prompt = %q, want reference placeholder", v.Prompt)
	}
}

func TestReferenceValidation(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})

	if err := st.SetReferenceImage(Section("Vibe"), makePNG(t, 2, 2), "image/png"); !errors.Is(err, ErrInvalidSection) {
		t.Errorf("SetReferenceImage(Vibe) = %v, want ErrInvalidSection", err)
	}
	if err := st.SetReferenceImage(SectionPose, []byte("junk"), "image/png"); !errors.Is(err, ErrBadImage) {
		t.Errorf("SetReferenceImage(junk) = %v, want ErrBadImage", err)
	}
}

func TestClearReference(t *testing.T) {
	st := newTestStudio(t, &fakeGenerator{})
	if err := st.SetReferenceImage(SectionOutfit, makePNG(t, 2, 2), "image/png"); err != nil {
		t.Fatalf("SetReferenceImage() = %v", err)
	}
	if err := st.ClearReference(SectionOutfit); err != nil {
		t.Fatalf("ClearReference() = %v", err)
	}
	if refs := st.References(); len(refs) != 0 {
		t.Errorf("References() = %v after clear, want empty", refs)
	}
}

func TestGalleryKindFilter(t *testing.T) {
	fake := &fakeGenerator{result: makePNG(t, 4, 4)}
	st := newTestStudio(t, fake)
	mustUpload(st, makePNG(t, 10, 10))
	if _, err := st.Generate(context.Background(), GenerateParams{Prompt: "x"}); err != nil {
		t.Fatalf("Generate() = %v", err)
	}

	if got := st.Gallery(history.KindUploaded); len(got) != 1 {
		t.Errorf("Gallery(UPLOADED) has %d images, want 1", len(got))
	}
	if got := st.Gallery(""); len(got) != 2 {
		t.Errorf("Gallery(all) has %d images, want 2", len(got))
	}
}
