package gemini

import (
	"fmt"
	"strings"
)

// instructionTemplate is the single prompt-template component shared by all
// tool request builders. Each builder fills the named slots; Render produces
// the instruction text sent ahead of the image parts. Having one template
// keeps the per-tool system instructions from drifting into near-identical
// copies.
type instructionTemplate struct {
	// role frames who the model is for this task. Optional.
	role string
	// goal is the primary task statement.
	goal string
	// rules are the numbered constraints applied to the task.
	rules []string
	// output states the output contract. Optional; most tools require that
	// the response is the image alone.
	output string
}

// Render assembles the slots into the final instruction text.
func (t instructionTemplate) Render() string {
	var b strings.Builder
	if t.role != "" {
		b.WriteString(t.role)
		b.WriteString(" ")
	}
	b.WriteString(t.goal)
	for i, rule := range t.rules {
		fmt.Fprintf(&b, "\n%d. %s", i+1, rule)
	}
	if t.output != "" {
		b.WriteString("\n")
		b.WriteString(t.output)
	}
	return b.String()
}

// sectionGuides maps each reference section to its composition rule in
// generate instructions.
var sectionGuides = map[string]string{
	"Subject":       "Use the 'Subject' image as the primary reference for the person's face, body, and identity. Maintain their likeness.",
	"Outfit":        "Use the 'Outfit' image for the clothing. Dress the subject in this attire.",
	"Pose":          "Use the 'Pose' image for the body's posture and position.",
	"Environment":   "Use the 'Environment' image as the background and setting.",
	"Style":         "Apply the overall aesthetic, lighting, color palette, and mood from the 'Style' image.",
	"Accessories":   "Incorporate the items from the 'Accessories' image onto the subject where appropriate.",
	"Insert Object": "If an 'Insert Object' image is provided, seamlessly integrate this object into the scene, paying attention to scale, lighting, and shadows.",
}

func generateInstruction(req GenerateRequest) string {
	goal := "Generate a new, photorealistic image by combining the following visual elements."
	if req.Prompt != "" {
		goal += fmt.Sprintf(" The main goal is to follow this instruction: %q.\nUse the visual references to guide the final output.", req.Prompt)
	}
	if req.NegativePrompt != "" {
		goal += fmt.Sprintf("\nStrictly avoid the following in the result: %q.", req.NegativePrompt)
	}

	var rules []string
	for _, ref := range req.References {
		if guide, ok := sectionGuides[ref.Section]; ok {
			rules = append(rules, guide)
		}
		if ref.Prompt != "" {
			rules = append(rules, fmt.Sprintf("For the %s, additionally follow: %q.", strings.ToLower(ref.Section), ref.Prompt))
		}
	}
	rules = append(rules, "Seamlessly blend all elements into a single, coherent, high-quality photograph.")

	return instructionTemplate{
		goal:   goal,
		rules:  rules,
		output: "The final output must be only the generated image.",
	}.Render()
}

func editInstruction(req EditRequest) string {
	if req.Global {
		rules := []string{
			fmt.Sprintf("Your primary instruction is: %q. Apply this change across the whole image.", req.Instruction),
			"Preserve the composition, identity, and every element the instruction does not touch.",
		}
		rules = append(rules, referenceRules(req.References, "the image")...)
		return instructionTemplate{
			role:   "You are a world-class digital artist specializing in photorealistic retouching.",
			goal:   "Your task is to modify the 'Base Image', following these strict rules:",
			rules:  rules,
			output: "The final result must be a single, seamless, photorealistic image. The output MUST be only the final image.",
		}.Render()
	}

	rules := []string{
		"You are ONLY permitted to make changes within the white areas of the accompanying 'Mask Image'.",
		"The black areas of the 'Mask Image' are SACROSANCT. They MUST be preserved with ZERO alterations. The final output's black-masked regions must be pixel-for-pixel identical to the 'Base Image'.",
		fmt.Sprintf("Your primary instruction is: %q. Apply this change ONLY to the white masked area.", req.Instruction),
	}
	rules = append(rules, referenceRules(req.References, "the white masked area")...)
	return instructionTemplate{
		role:   "You are a world-class digital artist specializing in photorealistic inpainting.",
		goal:   "Your task is to modify the 'Base Image' with extreme precision, following these strict rules:",
		rules:  rules,
		output: "The final result must be a single, seamless, photorealistic image that perfectly blends the edited area with the untouched original. The output MUST be only the final image.",
	}.Render()
}

// referenceRules produces the per-section guidance lines shared by the edit
// instruction variants.
func referenceRules(refs []ReferencePart, scope string) []string {
	var rules []string
	for _, ref := range refs {
		rules = append(rules, fmt.Sprintf("For the %s, refer to the '%s' reference image. Use it to guide the changes ONLY within %s.", strings.ToLower(ref.Section), ref.Section, scope))
	}
	return rules
}

func enhanceInstruction(variant EnhanceVariant) string {
	var upscale string
	switch variant {
	case EnhanceX2:
		upscale = "Upscale to 2x: Intelligently double the resolution, adding fine, realistic details."
	case EnhanceX4:
		upscale = "Upscale to 4x: Intelligently quadruple the resolution, adding fine, realistic details."
	default:
		upscale = "Upscale to 4K: Intelligently increase the resolution to 4K, adding fine, realistic details."
	}
	return instructionTemplate{
		goal: "Perform a high-impact, professional-grade enhancement on this image. Your task is to produce a dramatically improved version.",
		rules: []string{
			upscale,
			"Cinematic Retouching: Perform a magazine-quality skin retouch. Smooth blemishes and imperfections while preserving natural skin texture. Enhance the eyes and hair, making them sharp and vibrant.",
			"Advanced Color & Light: Apply cinematic color grading. Expand the dynamic range for deeper blacks and brighter highlights. Correct any color cast and enhance the overall color harmony. Optimize the lighting to add depth and drama.",
			"Final Polish: Add micro-contrast for a crisp, detailed look. Do not change the subject or composition.",
		},
		output: "The output must be only the enhanced image.",
	}.Render()
}

func backgroundInstruction(req BackgroundRequest) string {
	goal := "Replace the background of the 'Base Image'. It is crucial that you adjust the lighting, shadows, and color grading of the main subject to perfectly match the new background environment for a seamless, photorealistic composition."
	if len(req.Background) > 0 {
		goal += "\nUse the 'Background Image' as the new background."
	} else {
		goal += fmt.Sprintf("\nCreate a new background based on this description: %q.", req.Prompt)
	}
	return instructionTemplate{
		goal:   goal,
		output: "The output must be only the final image.",
	}.Render()
}

func outpaintInstruction(req OutpaintRequest) string {
	var target string
	switch {
	case req.Target.AspectRatio == AspectCustom && req.Target.CustomWidth > 0 && req.Target.CustomHeight > 0:
		target = fmt.Sprintf("a custom dimension of %dx%d pixels", req.Target.CustomWidth, req.Target.CustomHeight)
	case req.Target.AspectRatio == AspectFreeform || req.Target.AspectRatio == "":
		target = "a new dimension by expanding naturally without a fixed aspect ratio"
	default:
		target = fmt.Sprintf("a new aspect ratio of %s", req.Target.AspectRatio)
	}

	dirs := make([]string, len(req.Directions))
	for i, d := range req.Directions {
		dirs[i] = string(d)
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = "Natural expansion"
	}

	return instructionTemplate{
		role: "You are an expert at outpainting.",
		goal: fmt.Sprintf("Expand the provided image to fit %s. The original image content must be perfectly preserved at its center. Fill the new areas (in the specified directions: %s) with content that logically and stylistically continues the original image. The final image should be a seamless, single composition. Use this creative prompt for the new areas: %q.",
			target, strings.Join(dirs, ", "), prompt),
		output: "The output must be only the final image.",
	}.Render()
}
