package engine

import "math"

// bobyqb is the main iteration. Trust region steps from trsbox alternate
// with geometry steps from altmov that keep the interpolation set well
// poised. The radius rho only decreases, from rhobeg towards rhoend, and
// delta is the trust region radius of the current iteration.
//
// The scratch area s.w is shared by the subroutines; each call receives the
// slices it may use.
func (s *state) bobyqb(rhobeg, rhoend float64, maxfun int) (float64, Status) {
	n, npt, ndim := s.n, s.npt, s.ndim
	np := n + 1
	nptm := npt - np
	nh := n * np / 2
	xpt, bmat, zmat := s.xpt, s.bmat, s.zmat
	xbase, xopt, gopt, hq, pq, fval := s.xbase, s.xopt, s.gopt, s.hq, s.pq, s.fval
	sl, su, xnew, xalt, d, vlag, w := s.sl, s.su, s.xnew, s.xalt, s.d, s.vlag, s.w
	x, xl, xu := s.x, s.xl, s.xu

	var (
		kopt, kbase, knew, ksav, nresc, ntrits, itest, nfsav, ih int

		f, fsave, fopt, xoptsq, rho, delta, dnorm, dsq, crvmin float64
		diffa, diffb, diffc, diff, ratio, distsq, dist, adelt  float64
		alpha, cauchy, beta, denom, densav, vquad, pqold       float64
		scaden, biglsq, delsq, bsum, dx, sum, suma, sumb, temp float64
		gqsq, gisq                                             float64

		status Status
	)

	kopt = s.prelim(rhobeg, maxfun)
	for i := 0; i < n; i++ {
		xopt[i] = xpt[kopt][i]
		xoptsq += xopt[i] * xopt[i]
	}
	fsave = fval[0]
	if s.nf < npt {
		status = MaxFunReached
		goto finish
	}
	kbase = 0
	rho = rhobeg
	delta = rho
	nresc = s.nf
	ntrits = 0
	itest = 0
	nfsav = s.nf

gradient:
	// Move the gradient of the model from xbase to xopt.
	if kopt != kbase {
		s.addCurvature(xopt, s.nf > npt)
	}

trustRegion:
	dsq, crvmin = s.trsbox(delta, w[:n], w[n:2*n], w[2*n:3*n], w[3*n:4*n], w[4*n:5*n])
	dnorm = math.Min(delta, math.Sqrt(dsq))
	if dnorm < 0.5*rho {
		ntrits = -1
		distsq = (10 * rho) * (10 * rho)
		if s.nf <= nfsav+2 {
			goto farthest
		}

		// The step is short. Reduce rho only if the recent model errors are
		// small compared with the curvature along the step and at the
		// active bounds.
		errbig := math.Max(math.Max(diffa, diffb), diffc)
		frhosq := 0.125 * rho * rho
		if crvmin > 0 && errbig > frhosq*crvmin {
			goto farthest
		}
		bdtol := errbig / rho
		for j := 0; j < n; j++ {
			bdtest := bdtol
			if xnew[j] == sl[j] {
				bdtest = w[j]
			}
			if xnew[j] == su[j] {
				bdtest = -w[j]
			}
			if bdtest < bdtol {
				curv := hq[hqIndex(j, j)]
				for k := 0; k < npt; k++ {
					curv += pq[k] * xpt[k][j] * xpt[k][j]
				}
				bdtest += 0.5 * curv * rho
				if bdtest < bdtol {
					goto farthest
				}
			}
		}
		goto reduceRho
	}
	ntrits++

shift:
	// Move xbase to xopt when xopt is far away compared with the step.
	if dsq <= 1e-3*xoptsq {
		s.shiftBase(xoptsq)
		xoptsq = 0
	}
	if ntrits == 0 {
		goto geometry
	}
	goto lagrange

rescue:
	nfsav = s.nf
	kbase = kopt
	kopt = s.rescue(kopt, delta, maxfun, w[:2*n], w[2*n:2*n+npt], w[ndim+n:])
	xoptsq = 0
	if kopt != kbase {
		for i := 0; i < n; i++ {
			xopt[i] = xpt[kopt][i]
			xoptsq += xopt[i] * xopt[i]
		}
	}
	if s.nf < 0 {
		s.nf = maxfun
		status = MaxFunReached
		goto finish
	}
	nresc = s.nf
	if nfsav < s.nf {
		nfsav = s.nf
		goto gradient
	}
	if ntrits > 0 {
		goto trustRegion
	}

geometry:
	alpha, cauchy = s.altmov(knew, kopt, adelt, w[:n], w[n:n+npt], w[ndim:ndim+2*n])
	for i := 0; i < n; i++ {
		d[i] = xnew[i] - xopt[i]
	}

lagrange:
	// Values of the Lagrange functions at xopt+d in vlag, and beta, the
	// remaining term of the denominator of the updating formula.
	for k := 0; k < npt; k++ {
		suma = 0
		sumb = 0
		sum = 0
		for j := 0; j < n; j++ {
			suma += xpt[k][j] * d[j]
			sumb += xpt[k][j] * xopt[j]
			sum += bmat[k][j] * d[j]
		}
		w[k] = suma * (0.5*suma + sumb)
		vlag[k] = sum
		w[npt+k] = suma
	}
	beta = 0
	for jj := 0; jj < nptm; jj++ {
		sum = 0
		for k := 0; k < npt; k++ {
			sum += zmat[k][jj] * w[k]
		}
		beta -= sum * sum
		for k := 0; k < npt; k++ {
			vlag[k] += sum * zmat[k][jj]
		}
	}
	dsq = 0
	bsum = 0
	dx = 0
	for j := 0; j < n; j++ {
		dsq += d[j] * d[j]
		sum = 0
		for k := 0; k < npt; k++ {
			sum += w[k] * bmat[k][j]
		}
		bsum += sum * d[j]
		jp := npt + j
		for i := 0; i < n; i++ {
			sum += bmat[jp][i] * d[i]
		}
		vlag[jp] = sum
		bsum += sum * d[j]
		dx += d[j] * xopt[j]
	}
	beta = dx*dx + dsq*(xoptsq+dx+dx+0.5*dsq) + beta - bsum
	vlag[kopt]++

	if ntrits == 0 {
		// A Cauchy step may give a larger denominator than the step of
		// altmov.
		denom = vlag[knew]*vlag[knew] + alpha*beta
		if denom < cauchy && cauchy > 0 {
			for i := 0; i < n; i++ {
				xnew[i] = xalt[i]
				d[i] = xnew[i] - xopt[i]
			}
			cauchy = 0
			goto lagrange
		}
		if denom <= 0.5*vlag[knew]*vlag[knew] {
			if s.nf > nresc {
				goto rescue
			}
			status = DenominatorCancellation
			goto finish
		}
	} else {
		// Pick the point to drop for the trust region step, weighting the
		// denominators by distance from xopt.
		delsq = delta * delta
		scaden = 0
		biglsq = 0
		knew = -1
		for k := 0; k < npt; k++ {
			if k == kopt {
				continue
			}
			hdiag := 0.0
			for jj := 0; jj < nptm; jj++ {
				hdiag += zmat[k][jj] * zmat[k][jj]
			}
			den := beta*hdiag + vlag[k]*vlag[k]
			distsq = 0
			for j := 0; j < n; j++ {
				distsq += (xpt[k][j] - xopt[j]) * (xpt[k][j] - xopt[j])
			}
			temp = math.Max(1, (distsq/delsq)*(distsq/delsq))
			if temp*den > scaden {
				scaden = temp * den
				knew = k
				denom = den
			}
			biglsq = math.Max(biglsq, temp*vlag[k]*vlag[k])
		}
		if scaden <= 0.5*biglsq {
			if s.nf > nresc {
				goto rescue
			}
			status = DenominatorCancellation
			goto finish
		}
	}

evaluate:
	for i := 0; i < n; i++ {
		x[i] = math.Min(math.Max(xl[i], xbase[i]+xnew[i]), xu[i])
		if xnew[i] == sl[i] {
			x[i] = xl[i]
		}
		if xnew[i] == su[i] {
			x[i] = xu[i]
		}
	}
	if s.nf >= maxfun {
		status = MaxFunReached
		goto finish
	}
	f = s.evaluate(x)
	if ntrits == -1 {
		fsave = f
		status = RhoEndReached
		goto finish
	}

	// Error of the model's prediction of the change in f.
	fopt = fval[kopt]
	vquad = 0
	ih = 0
	for j := 0; j < n; j++ {
		vquad += d[j] * gopt[j]
		for i := 0; i <= j; i++ {
			temp = d[i] * d[j]
			if i == j {
				temp *= 0.5
			}
			vquad += hq[ih] * temp
			ih++
		}
	}
	for k := 0; k < npt; k++ {
		vquad += 0.5 * pq[k] * w[npt+k] * w[npt+k]
	}
	diff = f - fopt - vquad
	diffc = diffb
	diffb = diffa
	diffa = math.Abs(diff)
	if dnorm > rho {
		nfsav = s.nf
	}

	if ntrits > 0 {
		if vquad >= 0 {
			status = TrustRegionStepFailed
			goto finish
		}
		ratio = (f - fopt) / vquad
		if ratio <= 0.1 {
			delta = math.Min(0.5*delta, dnorm)
		} else if ratio <= 0.7 {
			delta = math.Max(0.5*delta, dnorm)
		} else {
			delta = math.Max(0.5*delta, dnorm+dnorm)
		}
		if delta <= 1.5*rho {
			delta = rho
		}

		// The new point is the best one, so the point to drop is chosen
		// again relative to it.
		if f < fopt {
			ksav = knew
			densav = denom
			delsq = delta * delta
			scaden = 0
			biglsq = 0
			knew = -1
			for k := 0; k < npt; k++ {
				hdiag := 0.0
				for jj := 0; jj < nptm; jj++ {
					hdiag += zmat[k][jj] * zmat[k][jj]
				}
				den := beta*hdiag + vlag[k]*vlag[k]
				distsq = 0
				for j := 0; j < n; j++ {
					distsq += (xpt[k][j] - xnew[j]) * (xpt[k][j] - xnew[j])
				}
				temp = math.Max(1, (distsq/delsq)*(distsq/delsq))
				if temp*den > scaden {
					scaden = temp * den
					knew = k
					denom = den
				}
				biglsq = math.Max(biglsq, temp*vlag[k]*vlag[k])
			}
			if scaden <= 0.5*biglsq {
				knew = ksav
				denom = densav
			}
		}
	}

	// Replace point knew by xnew and update the model so that it
	// interpolates f there.
	s.update(beta, denom, knew, w)
	ih = 0
	pqold = pq[knew]
	pq[knew] = 0
	for i := 0; i < n; i++ {
		temp = pqold * xpt[knew][i]
		for j := 0; j <= i; j++ {
			hq[ih] += temp * xpt[knew][j]
			ih++
		}
	}
	for jj := 0; jj < nptm; jj++ {
		temp = diff * zmat[knew][jj]
		for k := 0; k < npt; k++ {
			pq[k] += temp * zmat[k][jj]
		}
	}

	fval[knew] = f
	for i := 0; i < n; i++ {
		xpt[knew][i] = xnew[i]
		w[i] = bmat[knew][i]
	}
	for k := 0; k < npt; k++ {
		suma = 0
		for jj := 0; jj < nptm; jj++ {
			suma += zmat[knew][jj] * zmat[k][jj]
		}
		sumb = 0
		for j := 0; j < n; j++ {
			sumb += xpt[k][j] * xopt[j]
		}
		temp = suma * sumb
		for i := 0; i < n; i++ {
			w[i] += temp * xpt[k][i]
		}
	}
	for i := 0; i < n; i++ {
		gopt[i] += diff * w[i]
	}

	if f < fopt {
		kopt = knew
		xoptsq = 0
		for j := 0; j < n; j++ {
			xopt[j] = xnew[j]
			xoptsq += xopt[j] * xopt[j]
		}
		s.addCurvature(d, true)
	}

	if ntrits > 0 {
		// Gradient at xopt of the least Frobenius norm interpolant, kept in
		// vlag[npt:]. The model is replaced by it when its projected
		// gradient has been much smaller for three iterations.
		for k := 0; k < npt; k++ {
			vlag[k] = fval[k] - fval[kopt]
			w[k] = 0
		}
		for j := 0; j < nptm; j++ {
			sum = 0
			for k := 0; k < npt; k++ {
				sum += zmat[k][j] * vlag[k]
			}
			for k := 0; k < npt; k++ {
				w[k] += sum * zmat[k][j]
			}
		}
		for k := 0; k < npt; k++ {
			sum = 0
			for j := 0; j < n; j++ {
				sum += xpt[k][j] * xopt[j]
			}
			w[k+npt] = w[k]
			w[k] = sum * w[k]
		}
		gqsq = 0
		gisq = 0
		for i := 0; i < n; i++ {
			sum = 0
			for k := 0; k < npt; k++ {
				sum += bmat[k][i]*vlag[k] + xpt[k][i]*w[k]
			}
			if xopt[i] == sl[i] {
				gqsq += math.Min(0, gopt[i]) * math.Min(0, gopt[i])
				gisq += math.Min(0, sum) * math.Min(0, sum)
			} else if xopt[i] == su[i] {
				gqsq += math.Max(0, gopt[i]) * math.Max(0, gopt[i])
				gisq += math.Max(0, sum) * math.Max(0, sum)
			} else {
				gqsq += gopt[i] * gopt[i]
				gisq += sum * sum
			}
			vlag[npt+i] = sum
		}

		itest++
		if gqsq < 10*gisq {
			itest = 0
		}
		if itest >= 3 {
			for i := 0; i < max(npt, nh); i++ {
				if i < n {
					gopt[i] = vlag[npt+i]
				}
				if i < npt {
					pq[i] = w[npt+i]
				}
				if i < nh {
					hq[i] = 0
				}
			}
			itest = 0
		}
	}

	if ntrits == 0 {
		goto trustRegion
	}
	if f <= fopt+0.1*vquad {
		goto trustRegion
	}
	distsq = math.Max((2*delta)*(2*delta), (10*rho)*(10*rho))

farthest:
	// An interpolation point far from xopt is moved by a geometry step.
	knew = -1
	for k := 0; k < npt; k++ {
		sum = 0
		for j := 0; j < n; j++ {
			sum += (xpt[k][j] - xopt[j]) * (xpt[k][j] - xopt[j])
		}
		if sum > distsq {
			knew = k
			distsq = sum
		}
	}
	if knew >= 0 {
		dist = math.Sqrt(distsq)
		if ntrits == -1 {
			delta = math.Min(0.1*delta, 0.5*dist)
			if delta <= 1.5*rho {
				delta = rho
			}
		}
		ntrits = 0
		adelt = math.Max(math.Min(0.1*dist, delta), rho)
		dsq = adelt * adelt
		goto shift
	}
	if ntrits == -1 {
		goto reduceRho
	}
	if ratio > 0 {
		goto trustRegion
	}
	if math.Max(delta, dnorm) > rho {
		goto trustRegion
	}

reduceRho:
	if rho > rhoend {
		delta = 0.5 * rho
		ratio = rho / rhoend
		if ratio <= 16 {
			rho = rhoend
		} else if ratio <= 250 {
			rho = math.Sqrt(ratio) * rhoend
		} else {
			rho = 0.1 * rho
		}
		delta = math.Max(delta, rho)
		ntrits = 0
		nfsav = s.nf
		goto trustRegion
	}
	// A short final step that has not been tried yet is evaluated before
	// returning.
	if ntrits == -1 {
		goto evaluate
	}
	status = RhoEndReached

finish:
	if fval[kopt] <= fsave {
		for i := 0; i < n; i++ {
			x[i] = math.Min(math.Max(xl[i], xbase[i]+xopt[i]), xu[i])
			if xopt[i] == sl[i] {
				x[i] = xl[i]
			}
			if xopt[i] == su[i] {
				x[i] = xu[i]
			}
		}
		f = fval[kopt]
	}
	return f, status
}

// addCurvature adds the product of the model's second derivative matrix and
// v to gopt. The implicit part is skipped when implicit is false.
func (s *state) addCurvature(v []float64, implicit bool) {
	n, gopt, hq := s.n, s.gopt, s.hq
	ih := 0
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			if i < j {
				gopt[j] += hq[ih] * v[i]
			}
			gopt[i] += hq[ih] * v[j]
			ih++
		}
	}
	if !implicit {
		return
	}
	for k := 0; k < s.npt; k++ {
		temp := 0.0
		for j := 0; j < n; j++ {
			temp += s.xpt[k][j] * v[j]
		}
		temp *= s.pq[k]
		for i := 0; i < n; i++ {
			gopt[i] += temp * s.xpt[k][i]
		}
	}
}

// shiftBase moves xbase to xbase+xopt, revising bmat, the explicit second
// derivatives hq and the shifted quantities so that the model is
// unchanged. xoptsq is the squared length of xopt.
func (s *state) shiftBase(xoptsq float64) {
	n, npt := s.n, s.npt
	nptm := npt - n - 1
	xpt, bmat, zmat := s.xpt, s.bmat, s.zmat
	xopt, hq, pq, vlag, w := s.xopt, s.hq, s.pq, s.vlag, s.w

	fracsq := 0.25 * xoptsq
	sumpq := 0.0
	for k := 0; k < npt; k++ {
		sumpq += pq[k]
		sum := -0.5 * xoptsq
		for i := 0; i < n; i++ {
			sum += xpt[k][i] * xopt[i]
		}
		w[npt+k] = sum
		temp := fracsq - 0.5*sum
		for i := 0; i < n; i++ {
			w[i] = bmat[k][i]
			vlag[i] = sum*xpt[k][i] + temp*xopt[i]
			ip := npt + i
			for j := 0; j <= i; j++ {
				bmat[ip][j] += w[i]*vlag[j] + vlag[i]*w[j]
			}
		}
	}

	for jj := 0; jj < nptm; jj++ {
		sumz := 0.0
		sumw := 0.0
		for k := 0; k < npt; k++ {
			sumz += zmat[k][jj]
			vlag[k] = w[npt+k] * zmat[k][jj]
			sumw += vlag[k]
		}
		for j := 0; j < n; j++ {
			sum := (fracsq*sumz - 0.5*sumw) * xopt[j]
			for k := 0; k < npt; k++ {
				sum += vlag[k] * xpt[k][j]
			}
			w[j] = sum
			for k := 0; k < npt; k++ {
				bmat[k][j] += sum * zmat[k][jj]
			}
		}
		for i := 0; i < n; i++ {
			ip := i + npt
			temp := w[i]
			for j := 0; j <= i; j++ {
				bmat[ip][j] += temp * w[j]
			}
		}
	}

	ih := 0
	for j := 0; j < n; j++ {
		w[j] = -0.5 * sumpq * xopt[j]
		for k := 0; k < npt; k++ {
			w[j] += pq[k] * xpt[k][j]
			xpt[k][j] -= xopt[j]
		}
		for i := 0; i <= j; i++ {
			hq[ih] += w[i]*xopt[j] + xopt[i]*w[j]
			ih++
			bmat[npt+i][j] = bmat[npt+j][i]
		}
	}
	for i := 0; i < n; i++ {
		s.xbase[i] += xopt[i]
		s.xnew[i] -= xopt[i]
		s.sl[i] -= xopt[i]
		s.su[i] -= xopt[i]
		xopt[i] = 0
	}
}
