package engine

import "math"

// prelim sets the initial interpolation points, evaluates the objective at
// each of them and builds the first quadratic model together with the
// matrices bmat and zmat of the inverse KKT system. It returns the index of
// the best point. Fewer than npt points are evaluated when maxfun runs out
// first.
func (s *state) prelim(rhobeg float64, maxfun int) (kopt int) {
	n, npt := s.n, s.npt
	xpt, bmat, zmat := s.xpt, s.bmat, s.zmat
	gopt, hq, pq, fval := s.gopt, s.hq, s.pq, s.fval
	sl, su := s.sl, s.su

	rhosq := rhobeg * rhobeg
	recip := 1 / rhosq
	np := n + 1

	copy(s.xbase, s.x)
	for k := range xpt {
		clear(xpt[k])
		clear(zmat[k])
	}
	for i := range bmat {
		clear(bmat[i])
	}
	clear(hq)
	clear(pq)

	var (
		fbeg, stepa, stepb float64
		ipt, jpt           int
	)
	s.nf = 0
	for {
		// nfm and nfx count points before this one, nf includes it.
		nfm := s.nf
		nfx := s.nf - n
		nf := s.nf + 1
		row := xpt[nf-1]

		if nfm <= 2*n {
			if nfm >= 1 && nfm <= n {
				stepa = rhobeg
				if su[nfm-1] == 0 {
					stepa = -stepa
				}
				row[nfm-1] = stepa
			} else if nfm > n {
				stepa = xpt[nf-n-1][nfx-1]
				stepb = -rhobeg
				if sl[nfx-1] == 0 {
					stepb = math.Min(2*rhobeg, su[nfx-1])
				}
				if su[nfx-1] == 0 {
					stepb = math.Max(-2*rhobeg, sl[nfx-1])
				}
				row[nfx-1] = stepb
			}
		} else {
			itemp := (nfm - np) / n
			jpt = nfm - itemp*n - n
			ipt = jpt + itemp
			if ipt > n {
				itemp = jpt
				jpt = ipt - n
				ipt = itemp
			}
			row[ipt-1] = xpt[ipt][ipt-1]
			row[jpt-1] = xpt[jpt][jpt-1]
		}

		for j := 0; j < n; j++ {
			s.x[j] = math.Min(math.Max(s.xl[j], s.xbase[j]+row[j]), s.xu[j])
			if row[j] == sl[j] {
				s.x[j] = s.xl[j]
			}
			if row[j] == su[j] {
				s.x[j] = s.xu[j]
			}
		}
		f := s.evaluate(s.x)
		fval[nf-1] = f
		if nf == 1 {
			fbeg = f
			kopt = 0
		} else if f < fval[kopt] {
			kopt = nf - 1
		}

		// Second derivative terms along the coordinate directions come from
		// the two points on each axis, the off-diagonal terms from the
		// remaining points.
		if nf <= 2*n+1 {
			if nf >= 2 && nf <= n+1 {
				gopt[nfm-1] = (f - fbeg) / stepa
				if npt < nf+n {
					bmat[0][nfm-1] = -1 / stepa
					bmat[nf-1][nfm-1] = 1 / stepa
					bmat[npt+nfm-1][nfm-1] = -0.5 * rhosq
				}
			} else if nf >= n+2 {
				ih := hqIndex(nfx-1, nfx-1)
				temp := (f - fbeg) / stepb
				diff := stepb - stepa
				hq[ih] = 2 * (temp - gopt[nfx-1]) / diff
				gopt[nfx-1] = (gopt[nfx-1]*stepb - temp*stepa) / diff
				if stepa*stepb < 0 && f < fval[nf-n-1] {
					fval[nf-1] = fval[nf-n-1]
					fval[nf-n-1] = f
					if kopt == nf-1 {
						kopt = nf - n - 1
					}
					xpt[nf-n-1][nfx-1] = stepb
					row[nfx-1] = stepa
				}
				bmat[0][nfx-1] = -(stepa + stepb) / (stepa * stepb)
				bmat[nf-1][nfx-1] = -0.5 / xpt[nf-n-1][nfx-1]
				bmat[nf-n-1][nfx-1] = -bmat[0][nfx-1] - bmat[nf-1][nfx-1]
				zmat[0][nfx-1] = math.Sqrt2 / (stepa * stepb)
				zmat[nf-1][nfx-1] = math.Sqrt(0.5) / rhosq
				zmat[nf-n-1][nfx-1] = -zmat[0][nfx-1] - zmat[nf-1][nfx-1]
			}
		} else {
			zmat[0][nfx-1] = recip
			zmat[nf-1][nfx-1] = recip
			zmat[ipt][nfx-1] = -recip
			zmat[jpt][nfx-1] = -recip
			temp := row[ipt-1] * row[jpt-1]
			hq[hqIndex(jpt-1, ipt-1)] = (fbeg - fval[ipt] - fval[jpt] + f) / temp
		}

		if nf >= npt || nf >= maxfun {
			return kopt
		}
	}
}
