package engine

import "math"

// rescue rebuilds the interpolation set when rounding errors have damaged
// the denominators of the updating formula. xbase is moved to xopt, a
// provisional set of points along the coordinate directions replaces the
// current one in bmat and zmat, and the original points are then swapped
// back in one at a time while their denominators stay acceptable. Points
// that remain provisional are evaluated at the end.
//
// ptsaux holds two step lengths per variable: ptsaux[2*j] and
// ptsaux[2*j+1]. ptsid[k] identifies provisional point k as p + q/(n+1)
// plus a small offset, where p and q are 1-based coordinates of its nonzero
// components and 0 marks an original point. w needs npt+n+npt values.
//
// It returns the new kopt. s.nf is set to -1 when the budget runs out
// before every provisional point has been evaluated.
func (s *state) rescue(kopt int, delta float64, maxfun int, ptsaux, ptsid, w []float64) int {
	n, npt, ndim := s.n, s.npt, s.ndim
	np := n + 1
	nptm := npt - np
	sfrac := 0.5 / float64(np)
	xpt, bmat, zmat := s.xpt, s.bmat, s.zmat
	xbase, xopt, gopt, hq, pq, fval := s.xbase, s.xopt, s.gopt, s.hq, s.pq, s.fval
	sl, su, vlag := s.sl, s.su, s.vlag

	var (
		knew, kold, nrem, ip, iq, iw, ih int

		sumpq, winc, fbase, dsqmin, beta, denom float64
		vlmxsq, bsum, distsq, sum, temp         float64
		xp, xq, vquad, diff, f                  float64
	)

	// Shift the points so that xopt is the origin. w[ndim+k] keeps the
	// squared distance of point k for the search below.
	for k := 0; k < npt; k++ {
		distsq = 0
		for j := 0; j < n; j++ {
			xpt[k][j] -= xopt[j]
			distsq += xpt[k][j] * xpt[k][j]
		}
		sumpq += pq[k]
		w[ndim+k] = distsq
		winc = math.Max(winc, distsq)
		for j := 0; j < nptm; j++ {
			zmat[k][j] = 0
		}
	}

	for j := 0; j < n; j++ {
		w[j] = 0.5 * sumpq * xopt[j]
		for k := 0; k < npt; k++ {
			w[j] += pq[k] * xpt[k][j]
		}
		for i := 0; i <= j; i++ {
			hq[ih] += w[i]*xopt[j] + w[j]*xopt[i]
			ih++
		}
	}

	for j := 0; j < n; j++ {
		xbase[j] += xopt[j]
		sl[j] -= xopt[j]
		su[j] -= xopt[j]
		xopt[j] = 0
		ptsaux[2*j] = math.Min(delta, su[j])
		ptsaux[2*j+1] = math.Max(-delta, sl[j])
		if ptsaux[2*j]+ptsaux[2*j+1] < 0 {
			ptsaux[2*j], ptsaux[2*j+1] = ptsaux[2*j+1], ptsaux[2*j]
		}
		if math.Abs(ptsaux[2*j+1]) < 0.5*math.Abs(ptsaux[2*j]) {
			ptsaux[2*j+1] = 0.5 * ptsaux[2*j]
		}
		for i := 0; i < ndim; i++ {
			bmat[i][j] = 0
		}
	}
	fbase = fval[kopt]

	// Provisional points along the coordinate directions.
	ptsid[0] = sfrac
	for j := 0; j < n; j++ {
		jp := j + 1
		jpn := jp + n
		ptsid[jp] = float64(j+1) + sfrac
		if jpn < npt {
			ptsid[jpn] = float64(j+1)/float64(np) + sfrac
			temp = 1 / (ptsaux[2*j] - ptsaux[2*j+1])
			bmat[jp][j] = -temp + 1/ptsaux[2*j]
			bmat[jpn][j] = temp + 1/ptsaux[2*j+1]
			bmat[0][j] = -bmat[jp][j] - bmat[jpn][j]
			zmat[0][j] = math.Sqrt2 / math.Abs(ptsaux[2*j]*ptsaux[2*j+1])
			zmat[jp][j] = zmat[0][j] * ptsaux[2*j+1] * temp
			zmat[jpn][j] = -zmat[0][j] * ptsaux[2*j] * temp
		} else {
			bmat[0][j] = -1 / ptsaux[2*j]
			bmat[jp][j] = 1 / ptsaux[2*j]
			bmat[j+npt][j] = -0.5 * ptsaux[2*j] * ptsaux[2*j]
		}
	}

	// Remaining provisional points have two nonzero components.
	if npt >= n+np {
		for k := 2 * np; k <= npt; k++ {
			iw = int((float64(k-np) - 0.5) / float64(n))
			ip = k - np - iw*n
			iq = ip + iw
			if iq > n {
				iq -= n
			}
			ptsid[k-1] = float64(ip) + float64(iq)/float64(np) + sfrac
			temp = 1 / (ptsaux[2*(ip-1)] * ptsaux[2*(iq-1)])
			zmat[0][k-np-1] = temp
			zmat[ip][k-np-1] = -temp
			zmat[iq][k-np-1] = -temp
			zmat[k-1][k-np-1] = temp
		}
	}
	nrem = npt
	kold = 0
	knew = kopt

reorder:
	// Exchange provisional point kold with original point knew.
	for j := 0; j < n; j++ {
		bmat[kold][j], bmat[knew][j] = bmat[knew][j], bmat[kold][j]
	}
	for j := 0; j < nptm; j++ {
		zmat[kold][j], zmat[knew][j] = zmat[knew][j], zmat[kold][j]
	}
	ptsid[kold] = ptsid[knew]
	ptsid[knew] = 0
	w[ndim+knew] = 0
	nrem--
	if knew != kopt {
		vlag[kold], vlag[knew] = vlag[knew], vlag[kold]
		s.update(beta, denom, knew, w)
		if nrem == 0 {
			return kopt
		}
		for k := 0; k < npt; k++ {
			w[ndim+k] = math.Abs(w[ndim+k])
		}
	}

choose:
	// Nearest original point that has not yet been reinstated. Negative
	// distances mark points whose previous attempt failed.
	dsqmin = 0
	for k := 0; k < npt; k++ {
		if w[ndim+k] > 0 && (dsqmin == 0 || w[ndim+k] < dsqmin) {
			knew = k
			dsqmin = w[ndim+k]
		}
	}
	if dsqmin == 0 {
		goto include
	}

	for j := 0; j < n; j++ {
		w[npt+j] = xpt[knew][j]
	}
	for k := 0; k < npt; k++ {
		sum = 0
		switch {
		case k == kopt:
		case ptsid[k] == 0:
			for j := 0; j < n; j++ {
				sum += w[npt+j] * xpt[k][j]
			}
		default:
			ip = int(ptsid[k])
			if ip > 0 {
				sum = w[npt+ip-1] * ptsaux[2*(ip-1)]
			}
			iq = int(float64(np)*ptsid[k] - float64(ip*np))
			if iq > 0 {
				iw = 0
				if ip == 0 {
					iw = 1
				}
				sum += w[npt+iq-1] * ptsaux[2*(iq-1)+iw]
			}
		}
		w[k] = 0.5 * sum * sum
	}

	for k := 0; k < npt; k++ {
		sum = 0
		for j := 0; j < n; j++ {
			sum += bmat[k][j] * w[npt+j]
		}
		vlag[k] = sum
	}
	beta = 0
	for j := 0; j < nptm; j++ {
		sum = 0
		for k := 0; k < npt; k++ {
			sum += zmat[k][j] * w[k]
		}
		beta -= sum * sum
		for k := 0; k < npt; k++ {
			vlag[k] += sum * zmat[k][j]
		}
	}
	bsum = 0
	distsq = 0
	for j := 0; j < n; j++ {
		sum = 0
		for k := 0; k < npt; k++ {
			sum += bmat[k][j] * w[k]
		}
		jp := j + npt
		bsum += sum * w[jp]
		for i := npt; i < ndim; i++ {
			sum += bmat[i][j] * w[i]
		}
		bsum += sum * w[jp]
		vlag[jp] = sum
		distsq += xpt[knew][j] * xpt[knew][j]
	}
	beta = 0.5*distsq*distsq + beta - bsum
	vlag[kopt]++

	// Provisional point to drop, chosen for the largest denominator.
	denom = 0
	vlmxsq = 0
	for k := 0; k < npt; k++ {
		if ptsid[k] != 0 {
			hdiag := 0.0
			for j := 0; j < nptm; j++ {
				hdiag += zmat[k][j] * zmat[k][j]
			}
			den := beta*hdiag + vlag[k]*vlag[k]
			if den > denom {
				kold = k
				denom = den
			}
		}
		vlmxsq = math.Max(vlmxsq, vlag[k]*vlag[k])
	}
	if denom <= 1e-2*vlmxsq {
		w[ndim+knew] = -w[ndim+knew] - winc
		goto choose
	}
	goto reorder

include:
	// Evaluate the provisional points that are left and fold their values
	// into the model.
	for kpt := 0; kpt < npt; kpt++ {
		if ptsid[kpt] == 0 {
			continue
		}
		if s.nf >= maxfun {
			s.nf = -1
			return kopt
		}
		ih = 0
		for j := 0; j < n; j++ {
			w[j] = xpt[kpt][j]
			xpt[kpt][j] = 0
			temp = pq[kpt] * w[j]
			for i := 0; i <= j; i++ {
				hq[ih] += temp * w[i]
				ih++
			}
		}
		pq[kpt] = 0
		ip = int(ptsid[kpt])
		iq = int(float64(np)*ptsid[kpt] - float64(ip*np))
		if ip > 0 {
			xp = ptsaux[2*(ip-1)]
			xpt[kpt][ip-1] = xp
		}
		if iq > 0 {
			xq = ptsaux[2*(iq-1)]
			if ip == 0 {
				xq = ptsaux[2*(iq-1)+1]
			}
			xpt[kpt][iq-1] = xq
		}

		vquad = fbase
		if ip > 0 {
			vquad += xp * (gopt[ip-1] + 0.5*xp*hq[hqIndex(ip-1, ip-1)])
		}
		if iq > 0 {
			vquad += xq * (gopt[iq-1] + 0.5*xq*hq[hqIndex(iq-1, iq-1)])
			if ip > 0 {
				vquad += xp * xq * hq[hqIndex(min(ip, iq)-1, max(ip, iq)-1)]
			}
		}
		for k := 0; k < npt; k++ {
			temp = 0
			if ip > 0 {
				temp += xp * xpt[k][ip-1]
			}
			if iq > 0 {
				temp += xq * xpt[k][iq-1]
			}
			vquad += 0.5 * pq[k] * temp * temp
		}

		for i := 0; i < n; i++ {
			w[i] = math.Min(math.Max(s.xl[i], xbase[i]+xpt[kpt][i]), s.xu[i])
			if xpt[kpt][i] == sl[i] {
				w[i] = s.xl[i]
			}
			if xpt[kpt][i] == su[i] {
				w[i] = s.xu[i]
			}
		}
		f = s.evaluate(w[:n])
		fval[kpt] = f
		if f < fval[kopt] {
			kopt = kpt
		}
		diff = f - vquad

		for i := 0; i < n; i++ {
			gopt[i] += diff * bmat[kpt][i]
		}
		for k := 0; k < npt; k++ {
			sum = 0
			for j := 0; j < nptm; j++ {
				sum += zmat[k][j] * zmat[kpt][j]
			}
			temp = diff * sum
			if ptsid[k] == 0 {
				pq[k] += temp
				continue
			}
			ip = int(ptsid[k])
			iq = int(float64(np)*ptsid[k] - float64(ip*np))
			if ip == 0 {
				hq[hqIndex(iq-1, iq-1)] += temp * ptsaux[2*(iq-1)+1] * ptsaux[2*(iq-1)+1]
				continue
			}
			hq[hqIndex(ip-1, ip-1)] += temp * ptsaux[2*(ip-1)] * ptsaux[2*(ip-1)]
			if iq > 0 {
				hq[hqIndex(iq-1, iq-1)] += temp * ptsaux[2*(iq-1)] * ptsaux[2*(iq-1)]
				hq[hqIndex(min(ip, iq)-1, max(ip, iq)-1)] += temp * ptsaux[2*(ip-1)] * ptsaux[2*(iq-1)]
			}
		}
		ptsid[kpt] = 0
	}
	return kopt
}
