// Package render turns pipeline results into human-readable output.
//
// # Text Report
//
// [Report] prints the final mix, one line per position with tempo, original
// key and shift, effective key and the cost of the incoming transition.
// Clashing transitions carry bridge-key hints. [Summary] ranks tracks by
// their average transition cost, worst first.
//
//	render.Report(os.Stdout, res)
//
// # Chain Diagram
//
// [ToDOT] describes the set as a left-to-right chain whose edges carry the
// transition costs; [RenderSVG] lays it out with Graphviz.
//
//	dot := render.ToDOT(res, render.DOTOptions{})
//	svg, err := render.RenderSVG(ctx, dot)
package render
