package motion

import "github.com/deepteams/yavc/internal/raster"

// MSE scores how well b matches a. Luma and, when alpha is set, the validity
// channel are squared twice, so a single out-of-raster sample or a large luma
// error outweighs any chroma error:
//
//	((ΣΔY²)² + ΣΔU² + ΣΔV² + (ΣΔA²)²) / (size² * 4)   alpha
//	((ΣΔY²)² + ΣΔU² + ΣΔV²) / (size² * 3)             otherwise
//
// Both bundles must have the same size.
func MSE(a, b *raster.Samples, alpha bool) float64 {
	var sy, su, sv, sa float64
	for i := range a.Y {
		d := a.Y[i] - b.Y[i]
		sy += d * d
	}
	if alpha {
		for i := range a.Valid {
			d := a.Valid[i] - b.Valid[i]
			sa += d * d
		}
	}
	for i := range a.U {
		du := a.U[i] - b.U[i]
		dv := a.V[i] - b.V[i]
		su += du * du
		sv += dv * dv
	}

	n := float64(a.Size * a.Size)
	if alpha {
		return (sy*sy + su + sv + sa*sa) / (n * 4)
	}
	return (sy*sy + su + sv) / (n * 3)
}
