package epubclean

// Process applies the enabled passes to one document: style-run merging
// first, then the heading pass with the given chapter counter. The counter
// is returned, advanced by one if a heading was rendered.
//
// With both passes disabled the input is returned without being parsed.
// A parse failure returns the input unchanged and an error wrapping
// ErrMalformedMarkup. A chapter number the style cannot render returns the
// merged markup, the unchanged counter and an error wrapping
// ErrUnsupportedNumber.
func Process(markup []byte, counter int, cfg NumberingConfig, doMerge, doHeadings bool) (ProcessResult, error) {
	res := ProcessResult{Markup: markup, Counter: counter}
	if !doMerge && !doHeadings {
		return res, nil
	}

	root, err := Parse(markup)
	if err != nil {
		return res, err
	}

	if doMerge {
		res.Merged = MergeStyleRuns(root)
	}

	var headingErr error
	if doHeadings {
		m, headed, err := ApplyHeading(root, cfg, counter)
		res.Marker = m.Kind
		if err != nil {
			headingErr = err
		} else if headed {
			res.Headed = true
			res.Counter = counter + 1
		}
	}

	if res.Merged == 0 && !res.Headed {
		return res, headingErr
	}

	out, err := RenderBytes(root)
	if err != nil {
		return ProcessResult{Markup: markup, Counter: counter}, err
	}
	res.Markup = out
	res.Changed = string(out) != string(markup)
	if !res.Changed {
		res.Markup = markup
	}
	return res, headingErr
}
