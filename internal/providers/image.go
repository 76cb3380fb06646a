package providers

import (
	"fmt"
	"strings"

	"daygen/internal/domain"
	"daygen/internal/genjob"
)

func builtinImageEntries() []Entry {
	gemini := syncEntry("gemini", domain.MediaTypeImage)
	gemini.Capabilities = Capabilities{Edit: true}

	chatgpt := syncEntry("chatgpt-image", domain.MediaTypeImage)
	chatgpt.Capabilities = Capabilities{Edit: true}

	flux := asyncEntry("flux", domain.MediaTypeImage)
	flux.Capabilities = Capabilities{Edit: true}
	flux.BuildRequest = fluxBuildRequest

	// Ideogram edit/reframe/upscale/describe are deliberate capability gaps;
	// the session layer rejects them before any network call.
	ideogram := asyncEntry("ideogram", domain.MediaTypeImage)

	qwen := asyncEntry("qwen", domain.MediaTypeImage)
	qwen.BuildRequest = qwenBuildRequest

	reve := asyncEntry("reve", domain.MediaTypeImage)
	runwayImage := asyncEntry("runway-image", domain.MediaTypeImage)
	lumaImage := asyncEntry("luma-image", domain.MediaTypeImage)

	return []Entry{gemini, chatgpt, flux, ideogram, qwen, reve, runwayImage, lumaImage}
}

// fluxBuildRequest defaults the generation mode and validates reference usage:
// flux kontext models require at least one reference image.
func fluxBuildRequest(opts Options) (*genjob.SubmitRequest, error) {
	req, err := defaultBuildRequest(opts)
	if err != nil {
		return nil, err
	}
	mode, _ := opts.Extra["mode"].(string)
	if strings.Contains(mode, "kontext") && len(opts.References) == 0 {
		return nil, fmt.Errorf("flux: %s mode requires a reference image", mode)
	}
	if req.ProviderOptions == nil {
		req.ProviderOptions = map[string]any{}
	}
	if _, ok := req.ProviderOptions["outputFormat"]; !ok {
		req.ProviderOptions["outputFormat"] = "png"
	}
	return req, nil
}

// qwenBuildRequest normalizes the size option to DashScope's WxH form.
func qwenBuildRequest(opts Options) (*genjob.SubmitRequest, error) {
	req, err := defaultBuildRequest(opts)
	if err != nil {
		return nil, err
	}
	if req.ProviderOptions == nil {
		req.ProviderOptions = map[string]any{}
	}
	size, _ := req.ProviderOptions["size"].(string)
	if size == "" {
		req.ProviderOptions["size"] = "1328*1328"
	} else {
		req.ProviderOptions["size"] = strings.ReplaceAll(size, "x", "*")
	}
	return req, nil
}
